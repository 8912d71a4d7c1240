package database

import (
	"testing"
	"time"
)

func TestPoolOptionsDefaults(t *testing.T) {
	got := PoolOptions{}.withDefaults()
	if got != sessionStorePool {
		t.Fatalf("expected session store defaults, got %+v", got)
	}
}

func TestPoolOptionsKeepsExplicitValues(t *testing.T) {
	got := PoolOptions{MaxOpenConns: 3, MaxIdleConns: 8, ConnMaxLifetime: time.Minute}.withDefaults()

	if got.MaxOpenConns != 3 || got.ConnMaxLifetime != time.Minute {
		t.Fatalf("expected explicit values to survive, got %+v", got)
	}
	if got.MaxIdleConns != 3 {
		t.Fatalf("expected idle connections capped at the open limit, got %d", got.MaxIdleConns)
	}
	if got.ConnMaxIdleTime != sessionStorePool.ConnMaxIdleTime {
		t.Fatalf("expected default idle time, got %s", got.ConnMaxIdleTime)
	}
}
