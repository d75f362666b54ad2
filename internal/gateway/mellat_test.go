package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func mellatServer(t *testing.T, handler http.HandlerFunc) *Mellat {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewMellat(MellatConfig{
		TerminalID: "terminal-1",
		Username:   "user",
		Password:   "pass",
		BaseURL:    srv.URL,
	}, srv.Client())
}

func TestMellat_CreatePayment(t *testing.T) {
	t.Parallel()

	adapter := mellatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pgwchannel/services/bpPayRequest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostFormValue("terminalId") != "terminal-1" {
			t.Errorf("terminalId = %s", r.PostFormValue("terminalId"))
		}
		if r.PostFormValue("amount") != "3000000" {
			t.Errorf("amount = %s", r.PostFormValue("amount"))
		}
		fmt.Fprint(w, "0,REF123")
	})

	result, err := adapter.CreatePayment(context.Background(), CreateRequest{
		Amount:      3000000,
		CallbackURL: "https://freight.example/v1/payments/p1/verify",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token != "REF123" {
		t.Errorf("token = %s, want REF123", result.Token)
	}
}

func TestMellat_CreatePayment_Declined(t *testing.T) {
	t.Parallel()

	adapter := mellatServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "21")
	})

	_, err := adapter.CreatePayment(context.Background(), CreateRequest{Amount: 1})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("error = %v, want ErrRejected", err)
	}
}

func TestMellat_VerifyPayment_SettlesAfterVerify(t *testing.T) {
	t.Parallel()

	var paths []string
	adapter := mellatServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, "0")
	})

	result, err := adapter.VerifyPayment(context.Background(), "SALE-1", 3000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	want := []string{
		"/pgwchannel/services/bpVerifyRequest",
		"/pgwchannel/services/bpSettleRequest",
	}
	if len(paths) != len(want) {
		t.Fatalf("calls = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestMellat_VerifyPayment_SettleFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	adapter := mellatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, "0")
			return
		}
		fmt.Fprint(w, "34")
	})

	result, err := adapter.VerifyPayment(context.Background(), "SALE-1", 3000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("failed settlement must not read as success")
	}
}

func TestMellat_EmptyResponse(t *testing.T) {
	t.Parallel()

	adapter := mellatServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := adapter.CreatePayment(context.Background(), CreateRequest{Amount: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}
