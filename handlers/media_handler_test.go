package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/rs/zerolog"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	prommodel "github.com/prometheus/client_model/go"
)

var _ = Describe("Media handler", func() {
	const mediaPath = "/wp-content/uploads/2024/03/portrait.png"

	var (
		timeout = 500 * time.Millisecond
		logger  zerolog.Logger

		origin    *ghttp.Server
		originURL *url.URL

		rw      *httptest.ResponseRecorder
		handler http.Handler
	)

	BeforeEach(func() {
		var err error

		logger = zerolog.New(GinkgoWriter)

		origin = ghttp.NewServer()
		originURL, err = url.Parse(origin.URL())
		Expect(err).NotTo(HaveOccurred(), "Could not parse origin URL")

		rw = httptest.NewRecorder()
		handler = NewMediaHandler(originURL, timeout, timeout, logger)
	})

	AfterEach(func() {
		origin.Close()
	})

	Context("without an origin", func() {
		It("redirects to the placeholder image", func() {
			NewMediaHandler(nil, timeout, timeout, logger).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, mediaPath, nil))

			Expect(rw.Result().StatusCode).To(Equal(http.StatusFound))
			Expect(rw.Result().Header.Get("Location")).To(Equal("/placeholder.png"))
		})
	})

	Context("when the origin times out", func() {
		BeforeEach(func() {
			origin.AppendHandlers(func(rw http.ResponseWriter, r *http.Request) {
				time.Sleep(timeout * 2)
				rw.WriteHeader(http.StatusOK)
			})

			handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, mediaPath, nil))
		})

		It("should return HTTP 504", func() {
			Expect(rw.Result().StatusCode).To(Equal(http.StatusGatewayTimeout))
		})

		It("should not populate the Via header", func() {
			Expect(rw.Result().Header.Get("Via")).To(Equal(""))
		})
	})

	Context("when the origin refuses connections", func() {
		It("should return HTTP 502", func() {
			origin.Close()
			handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, mediaPath, nil))
			Expect(rw.Result().StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Context("when the origin serves the file", func() {
		BeforeEach(func() {
			origin.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, mediaPath),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(r.Host).To(Equal(originURL.Host))
					Expect(r.Header.Get("Cookie")).To(BeEmpty())
					Expect(r.Header.Get("Via")).To(Equal("1.1 site"))
				},
				ghttp.RespondWith(http.StatusOK, "PNG"),
			))

			req := httptest.NewRequest(http.MethodGet, mediaPath, nil)
			req.Header.Set("Cookie", "session=secret")
			handler.ServeHTTP(rw, req)
		})

		It("should return 200 with the body", func() {
			Expect(rw.Result().StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(rw.Result().Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("PNG"))
		})

		It("should populate the Via header", func() {
			Expect(rw.Result().Header.Get("Via")).To(Equal("1.1 site"))
		})
	})

	Context("when the origin returns 404", func() {
		It("passes the status through", func() {
			origin.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "Not Found"))
			handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, mediaPath, nil))
			Expect(rw.Result().StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	It("rejects methods other than GET and HEAD", func() {
		handler.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, mediaPath, nil))
		Expect(rw.Result().StatusCode).To(Equal(http.StatusMethodNotAllowed))
		Expect(origin.ReceivedRequests()).To(BeEmpty())
	})

	Context("metrics", func() {
		var (
			beforeRequestCountMetric            float64
			beforeResponseCountMetric           float64
			beforeResponseDurationSecondsMetric float64
		)

		measureRequestCount := func() float64 {
			return promtest.ToFloat64(
				mediaRequestCountMetric.With(prometheus.Labels{
					"request_method": http.MethodGet,
				}),
			)
		}

		measureResponseHistogram := func(responseCode string) *prommodel.Histogram {
			metricChan := make(chan prometheus.Metric, 1024)

			mediaResponseDurationSecondsMetric.Collect(metricChan)
			close(metricChan)
			for m := range metricChan {
				metric := new(prommodel.Metric)
				Expect(m.Write(metric)).To(Succeed())

				foundCount := 0
				for _, label := range metric.Label {
					if label.GetName() == "request_method" && label.GetValue() == http.MethodGet {
						foundCount++
					}
					if label.GetName() == "response_code" && label.GetValue() == responseCode {
						foundCount++
					}
				}

				if foundCount == 2 {
					return metric.Histogram
				}
			}

			return &prommodel.Histogram{}
		}

		measureResponseCount := func(responseCode string) float64 {
			return float64(measureResponseHistogram(responseCode).GetSampleCount())
		}

		measureResponseDurationSeconds := func(responseCode string) float64 {
			return measureResponseHistogram(responseCode).GetSampleSum()
		}

		BeforeEach(func() {
			beforeRequestCountMetric = measureRequestCount()
		})

		Context("when the request succeeds", func() {
			BeforeEach(func() {
				origin.AppendHandlers(func(rw http.ResponseWriter, r *http.Request) {
					time.Sleep(200 * time.Millisecond)
					rw.WriteHeader(http.StatusOK)
				})

				beforeResponseCountMetric = measureResponseCount("200")
				beforeResponseDurationSecondsMetric = measureResponseDurationSeconds("200")

				handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, mediaPath, nil))
			})

			It("should count the number of requests", func() {
				Expect(measureRequestCount() - beforeRequestCountMetric).To(Equal(float64(1)))
			})

			It("should count the number of proxied responses", func() {
				Expect(measureResponseCount("200") - beforeResponseCountMetric).To(Equal(float64(1)))
			})

			It("should record the duration of proxied responses", func() {
				Expect(
					measureResponseDurationSeconds("200") - beforeResponseDurationSecondsMetric,
				).To(BeNumerically("~", 0.2, 0.1))
			})
		})

		Context("when the request times out", func() {
			BeforeEach(func() {
				origin.AppendHandlers(func(rw http.ResponseWriter, r *http.Request) {
					time.Sleep(timeout * 2)
					rw.WriteHeader(http.StatusOK)
				})

				beforeResponseCountMetric = measureResponseCount("504")
				beforeResponseDurationSecondsMetric = measureResponseDurationSeconds("504")

				handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, mediaPath, nil))
			})

			It("should count the timed out response", func() {
				Expect(measureResponseCount("504") - beforeResponseCountMetric).To(Equal(float64(1)))
			})

			It("should record roughly the header timeout as its duration", func() {
				Expect(
					measureResponseDurationSeconds("504") - beforeResponseDurationSecondsMetric,
				).To(BeNumerically("~", timeout.Seconds(), 0.2))
			})
		})
	})
})
