package slack

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("splitText", func() {
	It("returns short text unchanged", func() {
		Expect(splitText("hello", 10)).To(Equal([]string{"hello"}))
	})

	It("returns nothing for empty text", func() {
		Expect(splitText("", 10)).To(BeEmpty())
	})

	It("prefers line breaks", func() {
		Expect(splitText("aaaa\nbbbb\ncc", 10)).To(Equal([]string{"aaaa\nbbbb", "cc"}))
	})

	It("never splits a rune", func() {
		s := strings.Repeat("é", 6) // 12 bytes
		parts := splitText(s, 5)
		Expect(strings.Join(parts, "")).To(Equal(s))
		for _, p := range parts {
			Expect(len(p)).To(BeNumerically("<=", 5))
			Expect([]rune(p)).NotTo(ContainElement('�'))
		}
	})
})
