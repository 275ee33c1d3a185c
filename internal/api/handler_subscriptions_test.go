package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair-tracker-backend/config"
)

func TestPutSubscription(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		storeErr     error
		expectedCode int
		expectedBody string
	}{
		{"Empty body", "", nil, http.StatusBadRequest, `{"error":"invalid request"}`},
		{"Missing customer", `{"endpoint":"https://push.example.com/1","p256dh":"k","auth":"a"}`, nil, http.StatusBadRequest, `{"error":"invalid request"}`},
		{"Created", `{"endpoint":"https://push.example.com/1","p256dh":"k","auth":"a","customer_id":"c1"}`, nil, http.StatusCreated, ""},
		{"Store failure", `{"endpoint":"https://push.example.com/1","p256dh":"k","auth":"a","customer_id":"c1"}`, errors.New("db down"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.subs.err = tc.storeErr

			w := h.do(http.MethodPut, "/api/subscriptions", tc.body)

			assert.Equal(t, tc.expectedCode, w.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			}
			if tc.expectedCode == http.StatusCreated {
				require.Len(t, h.subs.saved, 1)
				assert.Equal(t, "c1", h.subs.saved[0].CustomerID)
				assert.Equal(t, now, h.subs.saved[0].CreatedAt)
			}
		})
	}
}

func TestDeleteSubscription(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodDelete, "/api/subscriptions", `{"endpoint":"https://push.example.com/1"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"https://push.example.com/1"}, h.subs.deleted)

	w = h.do(http.MethodDelete, "/api/subscriptions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	handler, err := NewHandler(HandlerConfig{
		Devices:       testDevices(),
		Machine:       &fakeMachine{},
		Timelines:     builderFunc(nil),
		Subscriptions: &fakeSubscriptions{},
		Webpush:       &webpush.Options{VAPIDPublicKey: "BPub"},
	})
	require.NoError(t, err)
	h.router = NewRouter(handler, config.ServerConfig{CacheTTLSeconds: 60})

	w = h.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPub"}`, w.Body.String())
}
