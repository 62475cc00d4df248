package main

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ipAllowlist", func() {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(h http.Handler, remoteAddr, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = remoteAddr
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	It("allows everything when no CIDRs are configured", func() {
		Expect(serve(ipAllowlist("", ok), "203.0.113.9:1234", "")).To(Equal(http.StatusOK))
	})

	It("allows addresses inside a configured range", func() {
		h := ipAllowlist("10.0.0.0/8, 192.168.1.5", ok)

		Expect(serve(h, "10.1.2.3:5555", "")).To(Equal(http.StatusOK))
		Expect(serve(h, "192.168.1.5:5555", "")).To(Equal(http.StatusOK))
		Expect(serve(h, "192.168.1.6:5555", "")).To(Equal(http.StatusForbidden))
	})

	It("prefers the first X-Forwarded-For entry", func() {
		h := ipAllowlist("10.0.0.0/8", ok)

		Expect(serve(h, "203.0.113.9:1234", "10.0.0.7, 203.0.113.9")).To(Equal(http.StatusOK))
		Expect(serve(h, "10.0.0.7:1234", "203.0.113.9")).To(Equal(http.StatusForbidden))
	})

	It("handles IPv6 bare addresses", func() {
		h := ipAllowlist("::1", ok)

		Expect(serve(h, "[::1]:8080", "")).To(Equal(http.StatusOK))
	})

	It("skips invalid entries", func() {
		Expect(parseCIDRs("not-a-cidr, 10.0.0.0/8")).To(HaveLen(1))
		Expect(parseCIDRs("nonsense")).To(BeEmpty())
	})

	It("rejects unparseable client addresses", func() {
		h := ipAllowlist("10.0.0.0/8", ok)

		Expect(serve(h, "garbage", "")).To(Equal(http.StatusForbidden))
	})
})

var _ = Describe("logRequests", func() {
	It("passes the response through", func() {
		h := logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusTeapot))
	})
})
