package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisTokenBucketValidates(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err := NewRedisTokenBucket(nil, 10, time.Minute, "")
	assert.Error(t, err)
	_, err = NewRedisTokenBucket(client, 0, time.Minute, "")
	assert.Error(t, err)
	_, err = NewRedisTokenBucket(client, 10, 0, "")
	assert.Error(t, err)

	l, err := NewRedisTokenBucket(client, 10, time.Minute, " ")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyPrefix+":anonymous", l.key(""))
	assert.Equal(t, DefaultKeyPrefix+":127.0.0.1", l.key(" 127.0.0.1 "))
}

func TestAllowNRejectsOversizedCost(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	l, err := NewRedisTokenBucket(client, 2, time.Second, "test")
	require.NoError(t, err)

	_, err = l.AllowN(context.Background(), "user", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds bucket capacity")
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{in: int64(4), want: 4},
		{in: 7, want: 7},
		{in: 2.9, want: 2},
		{in: "12", want: 12},
		{in: "x", wantErr: true},
		{in: []byte("1"), wantErr: true},
	}
	for _, tt := range tests {
		got, err := toInt64(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
