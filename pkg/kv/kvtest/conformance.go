// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Rebeccayomide/BitcoinBridge/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	t.Run("StringOperations", func(t *testing.T) {
		testStringOperations(t, factory)
	})
	t.Run("KeyOperations", func(t *testing.T) {
		testKeyOperations(t, factory)
	})
	t.Run("TTLOperations", func(t *testing.T) {
		testTTLOperations(t, factory)
	})
	t.Run("CounterOperations", func(t *testing.T) {
		testCounterOperations(t, factory)
	})
	t.Run("HashOperations", func(t *testing.T) {
		testHashOperations(t, factory)
	})
	t.Run("HealthCheck", func(t *testing.T) {
		testHealthCheck(t, factory)
	})
}

func testStringOperations(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, store kv.Store)
	}{
		{"SetGet", testSetGet},
		{"GetNonExistent", testGetNonExistent},
		{"SetString", testSetString},
		{"Overwrite", testOverwrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:string"
	value := []byte("hello world")

	if err := store.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(result, value) {
		t.Fatalf("Get returned %q, want %q", result, value)
	}
}

func testGetNonExistent(t *testing.T, store kv.Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "test:missing")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get on missing key returned %v, want ErrNotFound", err)
	}
}

func testSetString(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:stringval"

	if err := store.SetString(ctx, key, "abc"); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}

	result, err := store.GetString(ctx, key)
	if err != nil {
		t.Fatalf("GetString failed: %v", err)
	}
	if result != "abc" {
		t.Fatalf("GetString returned %q, want %q", result, "abc")
	}
}

func testOverwrite(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:overwrite"

	if err := store.Set(ctx, key, []byte("first")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, key, []byte("second")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(result) != "second" {
		t.Fatalf("Get returned %q, want %q", result, "second")
	}
}

func testKeyOperations(t *testing.T, factory StoreFactory) {
	t.Run("DelExists", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.Set(ctx, "test:a", []byte("1")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set(ctx, "test:b", []byte("2")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		n, err := store.Exists(ctx, "test:a", "test:b", "test:missing")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if n != 2 {
			t.Fatalf("Exists returned %d, want 2", n)
		}

		deleted, err := store.Del(ctx, "test:a", "test:missing")
		if err != nil {
			t.Fatalf("Del failed: %v", err)
		}
		if deleted != 1 {
			t.Fatalf("Del returned %d, want 1", deleted)
		}

		if _, err := store.Get(ctx, "test:a"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get after Del returned %v, want ErrNotFound", err)
		}
	})
}

func testTTLOperations(t *testing.T, factory StoreFactory) {
	t.Run("SetWithTTL", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.Set(ctx, "test:ttl", []byte("v"), 30*time.Millisecond); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		if _, err := store.Get(ctx, "test:ttl"); err != nil {
			t.Fatalf("expected key to exist before expiry: %v", err)
		}

		time.Sleep(60 * time.Millisecond)

		if _, err := store.Get(ctx, "test:ttl"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get after expiry returned %v, want ErrNotFound", err)
		}
	})
}

func testCounterOperations(t *testing.T, factory StoreFactory) {
	t.Run("IncrBy", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		ctx := context.Background()

		v, err := store.IncrBy(ctx, "test:counter", 5)
		if err != nil {
			t.Fatalf("IncrBy failed: %v", err)
		}
		if v != 5 {
			t.Fatalf("IncrBy returned %d, want 5", v)
		}

		v, err = store.IncrBy(ctx, "test:counter", 3)
		if err != nil {
			t.Fatalf("IncrBy failed: %v", err)
		}
		if v != 8 {
			t.Fatalf("IncrBy returned %d, want 8", v)
		}
	})
}

func testHashOperations(t *testing.T, factory StoreFactory) {
	t.Run("HSetHGet", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.HSet(ctx, "test:hash", "field1", []byte("v1")); err != nil {
			t.Fatalf("HSet failed: %v", err)
		}

		v, err := store.HGet(ctx, "test:hash", "field1")
		if err != nil {
			t.Fatalf("HGet failed: %v", err)
		}
		if string(v) != "v1" {
			t.Fatalf("HGet returned %q, want %q", v, "v1")
		}

		if _, err := store.HGet(ctx, "test:hash", "missing"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("HGet on missing field returned %v, want ErrNotFound", err)
		}
	})

	t.Run("HGetAll", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.HSet(ctx, "test:hash", "a", []byte("1")); err != nil {
			t.Fatalf("HSet failed: %v", err)
		}
		if err := store.HSet(ctx, "test:hash", "b", []byte("2")); err != nil {
			t.Fatalf("HSet failed: %v", err)
		}

		all, err := store.HGetAll(ctx, "test:hash")
		if err != nil {
			t.Fatalf("HGetAll failed: %v", err)
		}

		want := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
		if !reflect.DeepEqual(all, want) {
			t.Fatalf("HGetAll returned %v, want %v", all, want)
		}

		if _, err := store.HGetAll(ctx, "test:nohash"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("HGetAll on missing key returned %v, want ErrNotFound", err)
		}
	})

	t.Run("HDel", func(t *testing.T) {
		store := factory(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.HSet(ctx, "test:hash", "a", []byte("1")); err != nil {
			t.Fatalf("HSet failed: %v", err)
		}

		deleted, err := store.HDel(ctx, "test:hash", "a", "missing")
		if err != nil {
			t.Fatalf("HDel failed: %v", err)
		}
		if deleted != 1 {
			t.Fatalf("HDel returned %d, want 1", deleted)
		}

		if _, err := store.HGet(ctx, "test:hash", "a"); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("HGet after HDel returned %v, want ErrNotFound", err)
		}
	})
}

func testHealthCheck(t *testing.T, factory StoreFactory) {
	store := factory(t)
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
