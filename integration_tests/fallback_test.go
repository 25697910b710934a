package integration

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Static fallback", func() {
	const (
		staticPort    = 3269
		staticAPIPort = 3268
	)

	var staticCMS *fakeCMS

	BeforeEach(func() {
		staticCMS = startFakeCMS()
		Expect(startSite(staticPort, staticAPIPort, staticCMS, []string{"FORCE_STATIC_FALLBACK=true"})).To(Succeed())
	})

	AfterEach(func() {
		stopSite(staticPort)
		staticCMS.Close()
	})

	It("serves bundled copy without contacting the content backend", func() {
		resp := doRequest(http.MethodGet, siteURL(staticPort, "/services"))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body := readBody(resp)
		Expect(body).To(ContainSubstring("Static mode."))
		Expect(body).To(ContainSubstring("AI Portraits"))

		resp = doRequest(http.MethodGet, siteURL(staticPort, "/"))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		readBody(resp)

		Expect(staticCMS.Requests()).To(BeZero())
	})

	It("shows detail pages as not found with the banner", func() {
		resp := doRequest(http.MethodGet, siteURL(staticPort, "/blog/my-post"))
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(readBody(resp)).To(ContainSubstring("Static mode."))
		Expect(staticCMS.Requests()).To(BeZero())
	})
})
