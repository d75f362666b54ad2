package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func zarinpalServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Zarinpal) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	adapter := NewZarinpal(ZarinpalConfig{
		MerchantID: "merchant-1",
		BaseURL:    srv.URL,
	}, srv.Client())
	return srv, adapter
}

func TestZarinpal_CreatePayment(t *testing.T) {
	t.Parallel()

	_, adapter := zarinpalServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/v4/payment/request.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["merchant_id"] != "merchant-1" {
			t.Errorf("merchant_id = %v", body["merchant_id"])
		}
		if body["amount"] != float64(5000000) {
			t.Errorf("amount = %v", body["amount"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": 100, "authority": "A0001"},
		})
	})

	result, err := adapter.CreatePayment(context.Background(), CreateRequest{
		Amount:      5000000,
		Currency:    "IRR",
		CallbackURL: "https://freight.example/v1/payments/p1/verify",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token != "A0001" {
		t.Errorf("token = %s, want A0001", result.Token)
	}
	if result.RedirectURL == "" {
		t.Error("redirect URL should point at StartPay")
	}
}

func TestZarinpal_CreatePayment_Declined(t *testing.T) {
	t.Parallel()

	_, adapter := zarinpalServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": -9, "message": "invalid amount"},
		})
	})

	_, err := adapter.CreatePayment(context.Background(), CreateRequest{Amount: 1})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("error = %v, want ErrRejected", err)
	}
}

func TestZarinpal_CreatePayment_ServerError(t *testing.T) {
	t.Parallel()

	_, adapter := zarinpalServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := adapter.CreatePayment(context.Background(), CreateRequest{Amount: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestZarinpal_VerifyPayment(t *testing.T) {
	t.Parallel()

	_, adapter := zarinpalServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["authority"] != "A0001" {
			t.Errorf("authority = %v", body["authority"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": 100, "ref_id": 987654},
		})
	})

	result, err := adapter.VerifyPayment(context.Background(), "A0001", 5000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.ReferenceID != "987654" {
		t.Errorf("reference id = %s, want 987654", result.ReferenceID)
	}
}

func TestZarinpal_VerifyPayment_AlreadyVerified(t *testing.T) {
	t.Parallel()

	_, adapter := zarinpalServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": 101, "ref_id": 987654},
		})
	})

	result, err := adapter.VerifyPayment(context.Background(), "A0001", 5000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || !result.AlreadyVerified {
		t.Errorf("result = %+v, want success and already-verified", result)
	}
}

func TestZarinpal_VerifyPayment_Declined(t *testing.T) {
	t.Parallel()

	_, adapter := zarinpalServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": -51, "message": "session expired"},
		})
	})

	result, err := adapter.VerifyPayment(context.Background(), "A0001", 5000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected failure")
	}
}

func TestZarinpal_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	adapter := NewZarinpal(ZarinpalConfig{BaseURL: srv.URL}, srv.Client())
	srv.Close()

	_, err := adapter.CreatePayment(context.Background(), CreateRequest{Amount: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}
