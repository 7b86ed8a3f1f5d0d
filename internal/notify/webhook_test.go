package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/internal/notify"
)

var _ = Describe("WebhookClient", func() {
	var (
		server   *httptest.Server
		status   int
		received []map[string]any
		query    string
	)

	BeforeEach(func() {
		status = http.StatusNoContent
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			query = r.URL.RawQuery

			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			Expect(json.Unmarshal(raw, &body)).To(Succeed())
			received = append(received, body)

			w.WriteHeader(status)
			if status >= 300 {
				_, _ = io.WriteString(w, `{"message": "boom"}`)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	client := func() *notify.WebhookClient {
		return notify.NewWebhookClientWithHTTP(server.Client(), time.Second)
	}

	It("treats 204 as success", func() {
		payload := notify.BuildPayload(notify.PayloadInput{Record: sampleRecord(), Summary: sampleSummary()})

		Expect(client().Post(context.Background(), server.URL, payload)).To(Succeed())
		Expect(received).To(HaveLen(1))
		Expect(received[0]["content"]).To(HavePrefix("@everyone"))
		Expect(received[0]["embeds"]).To(HaveLen(1))
		Expect(query).To(BeEmpty())
	})

	It("asks for components when the payload has them", func() {
		payload := notify.BuildPayload(notify.PayloadInput{Record: sampleRecord(), Summary: sampleSummary(), Components: true})

		Expect(client().Post(context.Background(), server.URL, payload)).To(Succeed())
		Expect(query).To(Equal("with_components=true"))
	})

	It("returns a DeliveryError with status and body on non-2xx, without retrying", func() {
		status = http.StatusInternalServerError

		err := client().Post(context.Background(), server.URL, notify.WebhookPayload{})

		var delivery *notify.DeliveryError
		Expect(errors.As(err, &delivery)).To(BeTrue())
		Expect(delivery.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(delivery.Body).To(ContainSubstring("boom"))
		Expect(received).To(HaveLen(1))
	})

	It("returns a DeliveryError on transport failure", func() {
		url := server.URL
		server.Close()

		err := client().Post(context.Background(), url, notify.WebhookPayload{})

		var delivery *notify.DeliveryError
		Expect(errors.As(err, &delivery)).To(BeTrue())
		Expect(delivery.StatusCode).To(BeZero())
		Expect(delivery.Err).To(HaveOccurred())
	})
})

var _ = Describe("Notifier", func() {
	It("applies the configured identity to the payload", func() {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		n := notify.NewNotifier(notify.NewWebhookClientWithHTTP(server.Client(), time.Second), notify.Config{
			WebhookURL: server.URL,
			Username:   "客戶回報系統",
		})

		Expect(n.Notify(context.Background(), notify.PayloadInput{Record: sampleRecord(), Summary: sampleSummary()})).To(Succeed())
		Expect(body["username"]).To(Equal("客戶回報系統"))
	})
})
