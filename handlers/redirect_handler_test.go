package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

var _ = Describe("Permanent redirects", func() {
	var rr *httptest.ResponseRecorder

	serve := func(h http.Handler, target string) {
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	}

	BeforeEach(func() {
		rr = httptest.NewRecorder()
	})

	DescribeTable("the location each kind sends the visitor to",
		func(h http.Handler, target, location string) {
			serve(h, target)
			Expect(rr.Code).To(Equal(http.StatusMovedPermanently))
			Expect(rr.Header().Get("Location")).To(Equal(location))
		},
		Entry("an old post permalink",
			NewLegacyRedirect("/2021/05/launch-notes", "/blog/launch-notes", false, zerolog.Nop()),
			"/2021/05/launch-notes?replytocom=12", "/blog/launch-notes"),
		Entry("an old post permalink shared from a newsletter",
			NewLegacyRedirect("/2021/05/launch-notes", "/blog/launch-notes", false, zerolog.Nop()),
			"/2021/05/launch-notes?utm_source=newsletter&utm_medium=email&_ga=1.2&replytocom=12",
			"/blog/launch-notes?_ga=1.2&utm_medium=email&utm_source=newsletter"),
		Entry("an old category archive keeping the rest of the path",
			NewLegacyRedirect("/category/work", "/portfolio", true, zerolog.Nop()),
			"/category/work/neon-brand?page=2", "/portfolio/neon-brand?page=2"),
		Entry("a mixed-case path",
			NewLowercaseRedirect(zerolog.Nop()), "/Portfolio/Neon-Brand?Ref=X", "/portfolio/neon-brand?Ref=X"),
		Entry("a trailing slash",
			NewTrailingSlashRedirect(zerolog.Nop()), "/blog/?category=news", "/blog?category=news"),
		Entry("a run of trailing slashes on the root",
			NewTrailingSlashRedirect(zerolog.Nop()), "//", "/"),
	)

	It("lets browsers and caches keep the redirect for 30 minutes", func() {
		serve(NewLegacyRedirect("/about-us", "/about", false, zerolog.Nop()), "/about-us")

		Expect(rr.Header().Get("Cache-Control")).To(Equal("max-age=1800, public"))
		Expect(rr.Header().Get("Expires")).To(WithTransform(
			func(s string) time.Time {
				t, err := time.Parse(time.RFC1123, s)
				Expect(err).NotTo(HaveOccurred())
				return t
			},
			BeTemporally("~", time.Now().Add(30*time.Minute), time.Minute)))
	})

	It("logs the legacy path and where it now lives", func() {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)

		serve(NewLegacyRedirect("/category/work", "/portfolio", true, logger), "/category/work/neon-brand?page=2")

		var entry map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
		Expect(entry).To(HaveKeyWithValue("level", "debug"))
		Expect(entry).To(HaveKeyWithValue("kind", LegacyPrefixRedirect))
		Expect(entry).To(HaveKeyWithValue("from", "/category/work/neon-brand?page=2"))
		Expect(entry).To(HaveKeyWithValue("to", "/portfolio/neon-brand?page=2"))
	})

	It("warns and keeps the bare target when it cannot carry analytics parameters", func() {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)

		serve(NewLegacyRedirect("/old", "/new%zz", false, logger), "/old?utm_source=x")

		Expect(rr.Code).To(Equal(http.StatusMovedPermanently))
		Expect(buf.String()).To(ContainSubstring(`"level":"warn"`))
		Expect(buf.String()).To(ContainSubstring("dropping analytics parameters"))
	})

	DescribeTable("counts each redirect under its kind",
		func(h http.Handler, target, kind string) {
			lbls := prometheus.Labels{"redirect_type": kind}
			before := promtest.ToFloat64(redirectCountMetric.With(lbls))

			serve(h, target)

			Expect(promtest.ToFloat64(redirectCountMetric.With(lbls)) - before).To(BeNumerically("~", 1.0))
		},
		Entry("legacy", NewLegacyRedirect("/about-us", "/about", false, zerolog.Nop()), "/about-us", LegacyRedirect),
		Entry("legacy prefix", NewLegacyRedirect("/category/work", "/portfolio", true, zerolog.Nop()), "/category/work/x", LegacyPrefixRedirect),
		Entry("lowercase", NewLowercaseRedirect(zerolog.Nop()), "/About", LowercaseRedirect),
		Entry("trailing slash", NewTrailingSlashRedirect(zerolog.Nop()), "/about/", TrailingSlashRedirect),
	)
})

var _ = Describe("Retired paths", func() {
	It("answer 410 and are counted", func() {
		before := promtest.ToFloat64(goneCountMetric)

		rr := httptest.NewRecorder()
		NewRetiredHandler(zerolog.Nop()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/shop/cart", nil))

		Expect(rr.Code).To(Equal(http.StatusGone))
		Expect(rr.Header().Get("Cache-Control")).To(ContainSubstring("public"))
		Expect(promtest.ToFloat64(goneCountMetric) - before).To(BeNumerically("~", 1.0))
	})
})
