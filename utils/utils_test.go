package utils

import (
	"errors"
	"regexp"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBase36(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"Empty", 0},
		{"Short", 4},
		{"Ticket suffix", 8},
		{"Long", 64},
	}

	pattern := regexp.MustCompile(`^[0-9a-z]*$`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := GenerateBase36(tt.length)
			require.NoError(t, err)
			assert.Len(t, code, tt.length)
			assert.Regexp(t, pattern, code)
		})
	}
}

func TestGenerateBase36_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := GenerateBase36(8)
		require.NoError(t, err)
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

// Redis Client Tests

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")

	err := RedisHealthCheck(db)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	expectedError := errors.New("connection failed")
	mock.ExpectPing().SetErr(expectedError)

	err := RedisHealthCheck(db)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
	assert.Contains(t, err.Error(), "connection failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func BenchmarkGenerateBase36(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateBase36(8)
	}
}
