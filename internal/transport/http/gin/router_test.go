package httpgin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/nowpayments"
	redisx "github.com/kirinyoku/vastore/internal/redis"
	"github.com/kirinyoku/vastore/internal/repository/memory"
	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
	"github.com/kirinyoku/vastore/internal/service"
	"github.com/kirinyoku/vastore/internal/service/adminauth"
	"github.com/kirinyoku/vastore/internal/service/reservation"
	"github.com/kirinyoku/vastore/internal/service/webhook"
)

const (
	ipnSecret  = "ipn-secret"
	adminEmail = "ops@example.com"
)

type fakeInvoices struct {
	mu  sync.Mutex
	err error
	got []nowpayments.InvoiceRequest
}

func (f *fakeInvoices) CreateInvoice(_ context.Context, req nowpayments.InvoiceRequest) (*nowpayments.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return &nowpayments.Invoice{ID: "inv-1", URL: "https://pay.example/inv-1"}, nil
}

type fakeGuides struct {
	mu   sync.Mutex
	sent int
}

func (f *fakeGuides) Send(context.Context, domain.Order, []domain.Listing) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return "msg", nil
}

type fixture struct {
	router   *gin.Engine
	store    *memory.Store
	svcs     *service.Services
	invoices *fakeInvoices
	guides   *fakeGuides
	feed     *Feed
}

type fixtureOpts struct {
	limiter RateLimiter
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	invoices := &fakeInvoices{}
	guides := &fakeGuides{}

	svcs := service.NewServices(service.Deps{
		Store:    store,
		Cache:    redisrepo.NewCache(rdb),
		Invoices: invoices,
		Guides:   guides,
	}, service.Config{
		Reservation: reservation.Config{HoldTTL: 10 * time.Minute},
		Webhook:     webhook.Config{IPNSecret: ipnSecret},
		AdminAuth:   adminauth.Config{AdminEmail: adminEmail, JWTSecret: "jwt-secret"},
	}, nil)

	feed := NewFeed()
	r := NewRouter(RouterDeps{
		Services:    svcs,
		Idempotency: redisrepo.NewIdempotencyStore(rdb, time.Hour),
		Limiter:     opts.limiter,
		Feed:        feed,
	}, RouterConfig{PublicBaseURL: "https://shop.example/"})

	return &fixture{router: r, store: store, svcs: svcs, invoices: invoices, guides: guides, feed: feed}
}

func (f *fixture) listing(t *testing.T, name string) *domain.Listing {
	t.Helper()
	l := &domain.Listing{Name: name, PurchasePrice: decimal.NewFromInt(99), IsActive: true}
	require.NoError(t, f.store.Listings().Create(context.Background(), l))
	return l
}

type request struct {
	method  string
	path    string
	body    any
	cookie  *http.Cookie
	headers map[string]string
}

func (f *fixture) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := r.body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(r.method, r.path, &buf)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// addToNewCart puts the listing into a fresh cart and returns its cookie.
func (f *fixture) addToNewCart(t *testing.T, id uuid.UUID) *http.Cookie {
	t.Helper()
	rec := f.do(t, request{method: http.MethodPost, path: "/api/cart/items", body: map[string]string{"listing_id": id.String()}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == cartCookie {
			return c
		}
	}
	t.Fatal("cart cookie not set")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCartCookieFlow(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.listing(t, "ana")

	rec := f.do(t, request{method: http.MethodGet, path: "/api/cart"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cart":null}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	cookie := f.addToNewCart(t, l.ID)
	assert.True(t, cookie.HttpOnly)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/cart", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec)
	require.NotNil(t, cart.Cart)
	require.Len(t, cart.Cart.Items, 1)
	assert.Equal(t, l.ID, cart.Cart.Items[0].ListingID)

	rec = f.do(t, request{method: http.MethodDelete, path: "/api/cart/items?listing_id=" + l.ID.String(), cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/cart", cookie: cookie})
	assert.Empty(t, decode[CartResponse](t, rec).Cart.Items)
}

func TestAddCartItemValidation(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	rec := f.do(t, request{method: http.MethodPost, path: "/api/cart/items", body: map[string]string{"listing_id": "nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, request{method: http.MethodPost, path: "/api/cart/items", body: map[string]string{"listing_id": uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "listing_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestReserve(t *testing.T) {
	t.Run("no cart", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "cart_not_found", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("second cart loses", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		l := f.listing(t, "ana")
		first := f.addToNewCart(t, l.ID)
		second := f.addToNewCart(t, l.ID)

		rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve", cookie: first, body: map[string]string{"email": "buyer@example.com"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ok := decode[ReserveResponse](t, rec)
		assert.True(t, ok.OK)
		assert.Equal(t, "99.00", ok.Total)

		rec = f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve", cookie: second})
		require.Equal(t, http.StatusConflict, rec.Code)
		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, "items_unavailable", body.Error)
		assert.Equal(t, []string{l.ID.String()}, body.ListingIDs)
	})

	t.Run("malformed discount code", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		l := f.listing(t, "ana")
		cookie := f.addToNewCart(t, l.ID)

		rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve", cookie: cookie, body: map[string]string{"discount_code": "!!"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_code", decode[ErrorResponse](t, rec).Error)
	})
}

func TestReserveIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.listing(t, "ana")
	cookie := f.addToNewCart(t, l.ID)

	hdr := map[string]string{"Idempotency-Key": "k-1"}
	first := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve", cookie: cookie, headers: hdr})
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve", cookie: cookie, headers: hdr})
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	orders, err := f.svcs.Orders.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.listing(t, "ana")
	cookie := f.addToNewCart(t, l.ID)

	rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/nowpayments/create", cookie: cookie, body: map[string]string{"email": "buyer@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	inv := decode[InvoiceResponse](t, rec)
	assert.Equal(t, "https://pay.example/inv-1", inv.InvoiceURL)
	assert.Equal(t, "inv-1", inv.InvoiceID)

	require.Len(t, f.invoices.got, 1)
	assert.Equal(t, "https://shop.example/api/checkout/nowpayments/ipn", f.invoices.got[0].IPNCallbackURL)
	assert.Equal(t, inv.OrderID, f.invoices.got[0].OrderID)
}

func TestCreateInvoiceProviderFailure(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.listing(t, "ana")
	cookie := f.addToNewCart(t, l.ID)

	f.invoices.err = &nowpayments.APIError{StatusCode: 400, Message: "amountTo is too small"}
	rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/nowpayments/create", cookie: cookie})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "amountTo is too small", decode[ErrorResponse](t, rec).Error)

	f.invoices.err = errors.New("dial tcp: refused")
	rec = f.do(t, request{method: http.MethodPost, path: "/api/checkout/nowpayments/create", cookie: cookie})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "payment_provider_unavailable", decode[ErrorResponse](t, rec).Error)
}

func TestIPN(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.listing(t, "ana")
	cookie := f.addToNewCart(t, l.ID)

	rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve", cookie: cookie, body: map[string]string{"email": "buyer@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := decode[ReserveResponse](t, rec).OrderID

	body := []byte(`{"order_id":"` + orderID + `","payment_status":"finished"}`)

	rec = f.do(t, request{method: http.MethodPost, path: "/api/checkout/nowpayments/ipn", body: body,
		headers: map[string]string{nowpayments.SignatureHeader: nowpayments.Sign(body, "wrong")}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"invalid_signature"}`, rec.Body.String())

	rec = f.do(t, request{method: http.MethodPost, path: "/api/checkout/nowpayments/ipn", body: body,
		headers: map[string]string{nowpayments.SignatureHeader: nowpayments.Sign(body, ipnSecret)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	got, err := f.store.Listings().Get(context.Background(), l.ID)
	require.NoError(t, err)
	st, err := got.State()
	require.NoError(t, err)
	assert.Equal(t, domain.ListingSold, st.Kind())
	assert.Equal(t, 1, f.guides.sent)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/checkout/nowpayments/ipn"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	rec := f.do(t, request{method: http.MethodGet, path: "/api/admin/orders"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, request{method: http.MethodPost, path: "/api/admin/login", body: map[string]string{"email": "intruder@example.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Invalid credentials"}`, rec.Body.String())

	rec = f.do(t, request{method: http.MethodPost, path: "/api/admin/login", body: map[string]string{"email": adminEmail}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	auth := map[string]string{"Authorization": "Bearer " + decode[adminauth.Session](t, rec).Token}

	rec = f.do(t, request{method: http.MethodGet, path: "/api/admin/orders", headers: auth})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())

	rec = f.do(t, request{method: http.MethodPost, path: "/api/admin/listings", headers: auth,
		body: map[string]any{"name": "cara", "purchase_price": "120"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Listing](t, rec)

	rec = f.do(t, request{method: http.MethodPut, path: "/api/admin/listings/" + created.ID.String(), headers: auth,
		body: map[string]any{"name": "cara b", "purchase_price": "130"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cara b", decode[domain.Listing](t, rec).Name)

	rec = f.do(t, request{method: http.MethodPost, path: "/api/admin/listings", headers: auth, body: map[string]any{"name": ""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, request{method: http.MethodPost, path: "/api/admin/discount-codes", headers: auth, body: map[string]string{"code": "save10"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, request{method: http.MethodPost, path: "/api/admin/discount-codes", headers: auth, body: map[string]string{"code": "SAVE10"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/discount-codes/validate?code=save10"})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[DiscountValidateResponse](t, rec)
	assert.True(t, v.Valid)
	assert.Equal(t, "SAVE10", v.Code)

	rec = f.do(t, request{method: http.MethodDelete, path: "/api/admin/discount-codes/SAVE10", headers: auth})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, request{method: http.MethodDelete, path: "/api/admin/discount-codes?code=SAVE10", headers: auth})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/admin/orders/" + uuid.NewString(), headers: auth})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitedCheckout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, fixtureOpts{limiter: redisrepo.NewSlidingWindowLimiter(rdb, "checkout", 1, time.Minute)})

	rec := f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, request{method: http.MethodPost, path: "/api/checkout/reserve"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = f.do(t, request{method: http.MethodPost, path: "/api/checkout/nowpayments/ipn", body: []byte(`{}`)})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "webhook is not rate limited")
}

func TestListingsETag(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.listing(t, "ana")

	rec := f.do(t, request{method: http.MethodGet, path: "/api/listings"})
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/listings", headers: map[string]string{"If-None-Match": etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = f.do(t, request{method: http.MethodGet, path: "/api/listings/" + l.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "contact_email")

	rec = f.do(t, request{method: http.MethodGet, path: "/api/listings/" + uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedPublishReachesSubscribers(t *testing.T) {
	feed := NewFeed()
	msgs, cancel := feed.subscribe()
	assert.Equal(t, 1, feed.clients())

	feed.Publish(context.Background(), redisx.ListingsChanged{Type: "listings_changed", Reason: "sold"})
	select {
	case m := <-msgs:
		assert.Equal(t, "sold", m.Reason)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	cancel()
	assert.Equal(t, 0, feed.clients())
}

func TestShutdownEndsListingStreams(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	srv := httptest.NewUnstartedServer(f.router)
	srv.Config.RegisterOnShutdown(f.feed.Close)
	srv.Start()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/listings/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "event:"), line)
	assert.Contains(t, line, "ready")
	assert.Equal(t, 1, f.feed.clients())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Config.Shutdown(ctx))
	assert.Equal(t, 0, f.feed.clients())

	rec := f.do(t, request{method: http.MethodGet, path: "/api/listings/stream"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
