package integration

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pages", func() {
	It("renders a post from the content backend", func() {
		resp := siteRequest("/blog/my-post")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/html"))

		body := readBody(resp)
		Expect(body).To(ContainSubstring("<title>My Post | RiftSurge</title>"))
		Expect(body).To(ContainSubstring("<p>Hello from the CMS.</p>"))
		Expect(body).To(ContainSubstring("March 5, 2024"))
	})

	It("returns the not-found page for unknown content", func() {
		resp := siteRequest("/nonexistent-page")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(readBody(resp)).To(ContainSubstring("Page not found"))
	})

	It("returns the not-found page for an unknown post", func() {
		resp := siteRequest("/blog/missing")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		readBody(resp)
	})

	It("renders an empty blog archive", func() {
		resp := siteRequest("/blog")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp)).To(ContainSubstring("No posts found."))
	})

	It("redirects trailing slashes", func() {
		resp := siteRequest("/blog/")
		Expect(resp.StatusCode).To(Equal(http.StatusMovedPermanently))
		Expect(resp.Header.Get("Location")).To(Equal("/blog"))
		readBody(resp)
	})

	It("refuses methods other than GET and HEAD on pages", func() {
		resp := doRequest(http.MethodPut, siteURL(sitePort, "/blog/my-post"))
		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		readBody(resp)
	})
})
