package site

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Routes", func() {
	It("is a valid routing table", func() {
		Expect(ValidateRoutes(Routes())).To(Succeed())
	})

	It("ends with the catch-all", func() {
		routes := Routes()
		Expect(routes[len(routes)-1]).To(Equal(Route{Pattern: "/*", Kind: KindGeneric}))
	})

	It("exports the fixed pages and archives", func() {
		Expect(StaticPaths()).To(Equal([]string{"/", "/services", "/about", "/contact", "/portfolio", "/blog"}))
	})

	Describe("ValidateRoutes", func() {
		It("rejects duplicate patterns", func() {
			err := ValidateRoutes([]Route{
				{Pattern: "/blog", Kind: KindBlog},
				{Pattern: "/blog", Kind: KindGeneric},
			})
			Expect(err).To(MatchError(ContainSubstring(`duplicate route "/blog"`)))
		})

		It("treats /* and * as the same catch-all", func() {
			err := ValidateRoutes([]Route{
				{Pattern: "/*", Kind: KindGeneric},
				{Pattern: "*", Kind: KindGeneric},
			})
			Expect(err).To(HaveOccurred())
		})

		It("allows an exact and a prefix route on the same path", func() {
			err := ValidateRoutes([]Route{
				{Pattern: "/", Kind: KindHome},
				{Pattern: "/*", Kind: KindGeneric},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown kinds and page routes without a slug", func() {
			err := ValidateRoutes([]Route{
				{Pattern: "/shop", Kind: "shop"},
				{Pattern: "/about", Kind: KindPage},
			})
			Expect(err).To(MatchError(ContainSubstring(`unknown kind "shop"`)))
			Expect(err).To(MatchError(ContainSubstring(`page route "/about" has no slug`)))
		})
	})
})

var _ = Describe("Redirect", func() {
	var redirect *Redirect

	BeforeEach(func() {
		redirect = &Redirect{}
	})

	Describe("handlerType", func() {
		It("is redirect for redirect entries", func() {
			redirect.SchemaName = stringPtr("redirect")
			Expect(redirect.handlerType()).To(Equal(HandlerTypeRedirect))
		})

		It("is gone for gone entries", func() {
			redirect.SchemaName = stringPtr("gone")
			Expect(redirect.handlerType()).To(Equal(HandlerTypeGone))
		})

		It("is empty for anything else", func() {
			redirect.SchemaName = stringPtr("guidance")
			Expect(redirect.handlerType()).To(BeEmpty())
		})
	})

	Describe("gone", func() {
		It("is true when details are missing, invalid or empty", func() {
			redirect.SchemaName = stringPtr("gone")
			Expect(redirect.gone()).To(BeTrue())

			redirect.Details = stringPtr("not json")
			Expect(redirect.gone()).To(BeTrue())

			redirect.Details = stringPtr(`{"explanation": null, "alternative_path": ""}`)
			Expect(redirect.gone()).To(BeTrue())
		})

		It("is false when details explain the removal", func() {
			redirect.SchemaName = stringPtr("gone")
			redirect.Details = stringPtr(`{"explanation": "moved to the blog"}`)
			Expect(redirect.gone()).To(BeFalse())
		})
	})

	Describe("segmentsMode", func() {
		It("defaults to preserve for prefix redirects", func() {
			redirect.RouteType = stringPtr("prefix")
			Expect(redirect.segmentsMode()).To(Equal("preserve"))
		})

		It("defaults to ignore for exact redirects", func() {
			redirect.RouteType = stringPtr("exact")
			Expect(redirect.segmentsMode()).To(Equal("ignore"))
		})

		It("uses an explicit mode", func() {
			redirect.RouteType = stringPtr("prefix")
			redirect.SegmentsMode = stringPtr("ignore")
			Expect(redirect.segmentsMode()).To(Equal("ignore"))
		})
	})

	DescribeTable("shouldPreserveSegments",
		func(routeType, mode string, want bool) {
			Expect(shouldPreserveSegments(routeType, mode)).To(Equal(want))
		},
		Entry("exact, preserve", RouteTypeExact, SegmentsModePreserve, true),
		Entry("exact, ignore", RouteTypeExact, SegmentsModeIgnore, false),
		Entry("prefix, preserve", RouteTypePrefix, SegmentsModePreserve, true),
		Entry("prefix, ignore", RouteTypePrefix, SegmentsModeIgnore, false),
		Entry("unknown type", "other", SegmentsModePreserve, false),
	)
})
