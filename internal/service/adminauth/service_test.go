package adminauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
)

const (
	adminEmail = "ops@example.com"
	totpSecret = "JBSWY3DPEHPK3PXP"
)

type alertSink struct {
	mu  sync.Mutex
	got []alertBody
}

func (a *alertSink) handler(w http.ResponseWriter, r *http.Request) {
	var b alertBody
	_ = json.NewDecoder(r.Body).Decode(&b)
	a.mu.Lock()
	a.got = append(a.got, b)
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *alertSink) alerts() []alertBody {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alertBody(nil), a.got...)
}

func newService(t *testing.T, cfg Config, opts ...Option) (*Service, *miniredis.Miniredis, *alertSink) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sink := &alertSink{}
	srv := httptest.NewServer(http.HandlerFunc(sink.handler))
	t.Cleanup(srv.Close)

	lockout := redisrepo.NewLoginLockout(rdb, redisrepo.LockoutConfig{})
	return New(cfg, lockout, NewWebhookAlerter(srv.URL, srv.Client()), nil, opts...), mr, sink
}

func TestLoginWithTOTP(t *testing.T) {
	svc, _, _ := newService(t, Config{AdminEmail: "Ops@Example.com", TOTPSecret: totpSecret, JWTSecret: "k"})
	ctx := context.Background()

	code, err := totp.GenerateCode(totpSecret, time.Now().UTC())
	require.NoError(t, err)

	sess, err := svc.Login(ctx, " OPS@example.com ", code[:3]+" "+code[3:], "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), sess.ExpiresAt, time.Minute)

	who, err := svc.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, who)
}

func TestLoginRejectsWrongEmailOrCode(t *testing.T) {
	svc, _, _ := newService(t, Config{AdminEmail: adminEmail, TOTPSecret: totpSecret, JWTSecret: "k"})
	ctx := context.Background()

	code, err := totp.GenerateCode(totpSecret, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "intruder@example.com", code, "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, adminEmail, "12345", "10.0.0.2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithoutTOTPSecret(t *testing.T) {
	svc, _, _ := newService(t, Config{AdminEmail: adminEmail, JWTSecret: "k"})

	_, err := svc.Login(context.Background(), adminEmail, "", "10.0.0.1")
	assert.NoError(t, err)
}

func TestLoginNotConfigured(t *testing.T) {
	svc, _, _ := newService(t, Config{JWTSecret: "k"})

	_, err := svc.Login(context.Background(), adminEmail, "", "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	svc, mr, sink := newService(t, Config{AdminEmail: adminEmail, TOTPSecret: totpSecret, JWTSecret: "k"})
	ctx := context.Background()
	const ip = "10.0.0.9"

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, adminEmail, "000000x", ip)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	alerts := sink.alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, ip, alerts[0].IP)
	assert.EqualValues(t, 3, alerts[0].Attempts)
	assert.Equal(t, (10 * time.Minute).Milliseconds(), alerts[0].LockMs)

	code, err := totp.GenerateCode(totpSecret, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.Login(ctx, adminEmail, code, ip)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "locked even with a valid code")

	_, err = svc.Login(ctx, adminEmail, code, "10.0.0.10")
	assert.NoError(t, err, "the lock is per client")

	mr.FastForward(11 * time.Minute)

	code, err = totp.GenerateCode(totpSecret, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Login(ctx, adminEmail, code, ip)
	assert.NoError(t, err)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	now := time.Now()
	svc, _, _ := newService(t, Config{AdminEmail: adminEmail, JWTSecret: "k"},
		WithClock(func() time.Time { return now }))

	sess, err := svc.Login(context.Background(), adminEmail, "", "10.0.0.1")
	require.NoError(t, err)

	_, err = svc.Verify(sess.Token + "x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := New(Config{AdminEmail: adminEmail, JWTSecret: "other"}, nil, nil, nil)
	_, err = other.Verify(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	now = now.Add(13 * time.Hour)
	_, err = svc.Verify(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
