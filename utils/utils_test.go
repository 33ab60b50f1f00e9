package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.NoError(t, VerifyPassword("secret123", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("13812345678"))
	assert.False(t, IsValidPhone("12812345678"))
	assert.False(t, IsValidPhone("1381234567"))
	assert.False(t, IsValidPhone("138123456789"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a.b@example.com"))
	assert.False(t, IsValidEmail("not-an-email"))
}

func TestGenerateOrderNo(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	no := GenerateOrderNo(now)
	assert.Regexp(t, regexp.MustCompile(`^ORD-1700000000123-[0-9A-F]{5}$`), no)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		seen[GenerateOrderNo(now)] = struct{}{}
	}
	// 同一毫秒内也应基本不冲突
	assert.Greater(t, len(seen), 990)
}

func TestParsePage(t *testing.T) {
	page, limit := ParsePage("", "", 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = ParsePage("3", "20", 10)
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, limit)
	assert.Equal(t, int64(40), Skip(page, limit))

	page, limit = ParsePage("-1", "abc", 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, limit = ParsePage("1", "1000", 10)
	assert.Equal(t, maxPageSize, limit)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	token, err := m.Issue("64b000000000000000000001", "alice")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", claims.ID)
	assert.Equal(t, "alice", claims.Username)
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.Issue("id", "alice")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenInvalid(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)
	token, err := other.Issue("id", "alice")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "id"})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(s)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 45, Limit: 20}, p)

	op := NewOrderPagination(1, 10, 0)
	assert.Equal(t, 0, op.TotalPages)
	assert.Equal(t, int64(0), op.TotalOrders)
}
