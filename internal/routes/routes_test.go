package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/config"
	"github.com/glowbook/glowbook/internal/logging"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := config.Config{
		AppName:         "glowbook-test",
		AppEnv:          "test",
		Currency:        "USD",
		JWTSecret:       "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	if _, err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func registerAndLogin(t *testing.T, app *fiber.App, name, email, role string) (id, token string) {
	t.Helper()
	code, body := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name": name, "email": email, "password": "longenough", "role": role,
	})
	if code != fiber.StatusCreated {
		t.Fatalf("register %s: status %d body %v", email, code, body)
	}
	id, _ = body["user_id"].(string)

	code, body = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email": email, "password": "longenough",
	})
	if code != fiber.StatusOK {
		t.Fatalf("login %s: status %d body %v", email, code, body)
	}
	token, _ = body["access_token"].(string)
	if token == "" {
		t.Fatalf("login %s: no access token in %v", email, body)
	}
	return id, token
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	app := testApp(t)

	_, clientToken := registerAndLogin(t, app, "Zoe", "zoe@example.com", "client")
	stylistID, stylistToken := registerAndLogin(t, app, "Ama", "ama@example.com", "stylist")

	// Stylist publishes an offering.
	code, offering := doJSON(t, app, fiber.MethodPost, "/api/v1/offerings", stylistToken, fiber.Map{
		"name": "Silk press", "price": 7500, "duration_min": 90, "slots": []string{"09:00", "13:00"},
	})
	if code != fiber.StatusCreated {
		t.Fatalf("create offering: status %d body %v", code, offering)
	}
	offeringID, _ := offering["id"].(string)

	// Anyone can browse it.
	code, listing := doJSON(t, app, fiber.MethodGet, "/api/v1/stylists/"+stylistID+"/offerings", "", nil)
	if code != fiber.StatusOK {
		t.Fatalf("browse offerings: status %d body %v", code, listing)
	}

	// Client funds their wallet.
	code, topup := doJSON(t, app, fiber.MethodPost, "/api/v1/wallet/topup", clientToken, fiber.Map{
		"amount": 10000, "card_number": "4242 4242 4242 4242",
	})
	if code != fiber.StatusCreated {
		t.Fatalf("topup: status %d body %v", code, topup)
	}

	// Client books a slot.
	date := time.Now().UTC().Add(72 * time.Hour).Format("2006-01-02")
	code, booked := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/", clientToken, fiber.Map{
		"offering_id": offeringID, "date": date, "time_slot": "09:00",
	})
	if code != fiber.StatusCreated {
		t.Fatalf("create booking: status %d body %v", code, booked)
	}
	bookingID, _ := booked["id"].(string)
	if booked["status"] != "pending" || booked["payment_status"] != "pending" {
		t.Fatalf("unexpected initial booking state: %v", booked)
	}

	// Stylists cannot create bookings.
	if code, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/", stylistToken, fiber.Map{
		"offering_id": offeringID, "date": date, "time_slot": "13:00",
	}); code != fiber.StatusForbidden {
		t.Fatalf("expected 403 for stylist booking, got %d", code)
	}

	// Client pays into escrow.
	code, paid := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/"+bookingID+"/pay", clientToken, nil)
	if code != fiber.StatusCreated {
		t.Fatalf("pay: status %d body %v", code, paid)
	}

	// Paying again replays as a no-op.
	code, paidAgain := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/"+bookingID+"/pay", clientToken, nil)
	if code != fiber.StatusOK || paidAgain["already_applied"] != true {
		t.Fatalf("second pay: status %d body %v", code, paidAgain)
	}

	// The client cannot advance the booking; the stylist drives it.
	if code, _ := doJSON(t, app, fiber.MethodPatch, "/api/v1/bookings/"+bookingID+"/status", clientToken, fiber.Map{"status": "confirmed"}); code != fiber.StatusForbidden {
		t.Fatalf("expected 403 for client confirm, got %d", code)
	}
	for _, status := range []string{"confirmed", "in_progress", "completed"} {
		code, moved := doJSON(t, app, fiber.MethodPatch, "/api/v1/bookings/"+bookingID+"/status", stylistToken, fiber.Map{"status": status})
		if code != fiber.StatusOK {
			t.Fatalf("transition to %s: status %d body %v", status, code, moved)
		}
	}

	// Completion released the escrow to the stylist.
	code, final := doJSON(t, app, fiber.MethodGet, "/api/v1/bookings/"+bookingID, stylistToken, nil)
	if code != fiber.StatusOK {
		t.Fatalf("get booking: status %d", code)
	}
	if final["status"] != "completed" || final["payment_status"] != "released_to_stylist" {
		t.Fatalf("unexpected final state: %v", final)
	}

	code, wallet := doJSON(t, app, fiber.MethodGet, "/api/v1/wallet/", stylistToken, nil)
	if code != fiber.StatusOK {
		t.Fatalf("stylist wallet: status %d", code)
	}
	if balance, _ := wallet["balance"].(float64); balance != 7500 {
		t.Fatalf("expected stylist balance 7500, got %v", wallet["balance"])
	}

	code, clientWallet := doJSON(t, app, fiber.MethodGet, "/api/v1/wallet/", clientToken, nil)
	if code != fiber.StatusOK {
		t.Fatalf("client wallet: status %d", code)
	}
	if balance, _ := clientWallet["balance"].(float64); balance != 2500 {
		t.Fatalf("expected client balance 2500, got %v", clientWallet["balance"])
	}
}

func TestDisputeFlowOverHTTP(t *testing.T) {
	app := testApp(t)

	_, clientToken := registerAndLogin(t, app, "Zoe", "zoe@example.com", "client")
	_, stylistToken := registerAndLogin(t, app, "Ama", "ama@example.com", "stylist")

	code, offering := doJSON(t, app, fiber.MethodPost, "/api/v1/offerings", stylistToken, fiber.Map{
		"name": "Braids", "price": 4000, "duration_min": 120, "slots": []string{"10:00"},
	})
	if code != fiber.StatusCreated {
		t.Fatalf("create offering: %d %v", code, offering)
	}
	if code, topup := doJSON(t, app, fiber.MethodPost, "/api/v1/wallet/topup", clientToken, fiber.Map{
		"amount": 4000, "card_number": "4242 4242 4242 4242",
	}); code != fiber.StatusCreated {
		t.Fatalf("topup failed: %d %v", code, topup)
	}

	date := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	_, booked := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/", clientToken, fiber.Map{
		"offering_id": offering["id"], "date": date, "time_slot": "10:00",
	})
	bookingID, _ := booked["id"].(string)
	if bookingID == "" {
		t.Fatalf("booking not created: %v", booked)
	}
	if code, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/"+bookingID+"/pay", clientToken, nil); code != fiber.StatusCreated {
		t.Fatalf("pay failed: %d", code)
	}

	// Client raises a dispute; the booking freezes.
	code, disputed := doJSON(t, app, fiber.MethodPost, "/api/v1/bookings/"+bookingID+"/dispute", clientToken, fiber.Map{"reason": "stylist no-show"})
	if code != fiber.StatusOK || disputed["status"] != "disputed" {
		t.Fatalf("dispute: status %d body %v", code, disputed)
	}
	if code, _ := doJSON(t, app, fiber.MethodPatch, "/api/v1/bookings/"+bookingID+"/status", stylistToken, fiber.Map{"status": "completed"}); code != fiber.StatusConflict {
		t.Fatalf("expected 409 for frozen booking, got %d", code)
	}

	// A non-admin cannot resolve.
	if code, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/admin/disputes/"+bookingID+"/resolve", clientToken, fiber.Map{"resolution": "cancelled"}); code != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin resolve, got %d", code)
	}

	// Admin accounts are not self-service; forge one through the identity
	// backend is out of reach here, so check the registration guard instead.
	if code, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name": "Root", "email": "root@example.com", "password": "longenough", "role": "admin",
	}); code != fiber.StatusForbidden {
		t.Fatalf("expected 403 for admin self-registration, got %d", code)
	}
}

func TestHealthAndPing(t *testing.T) {
	app := testApp(t)

	code, health := doJSON(t, app, fiber.MethodGet, "/healthz", "", nil)
	if code != fiber.StatusOK {
		t.Fatalf("healthz: status %d body %v", code, health)
	}
	code, ping := doJSON(t, app, fiber.MethodGet, "/api/v1/ping", "", nil)
	if code != fiber.StatusOK || ping["status"] != "ok" {
		t.Fatalf("ping: status %d body %v", code, ping)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := testApp(t)
	paths := []struct{ method, path string }{
		{fiber.MethodGet, "/api/v1/wallet/"},
		{fiber.MethodGet, "/api/v1/bookings/"},
		{fiber.MethodGet, "/api/v1/me"},
	}
	for _, p := range paths {
		if code, _ := doJSON(t, app, p.method, p.path, "", nil); code != fiber.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", p.method, p.path, code)
		}
	}

	if code, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/me", "not-a-token", nil); code != fiber.StatusUnauthorized {
		t.Fatal("expected 401 for malformed token")
	}
}
