package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/storage"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/pkg/crypto/adaptive"
	"github.com/yndnr/fwt-go/pkg/fwt"
	"github.com/yndnr/fwt-go/pkg/token"
)

// PayloadSizes defines the binary payload sizes for benchmarking.
var PayloadSizes = []int{0, 64, 1024, 16384}

// RevocationCounts defines the revocation store sizes for benchmarking.
var RevocationCounts = []int{0, 1000, 10000, 100000}

// Ciphers lists the supported AEADs.
var Ciphers = []adaptive.CipherType{adaptive.CipherAESGCM, adaptive.CipherChaCha20}

func newKey(b *testing.B) []byte {
	b.Helper()
	key, err := fwt.GenerateKey()
	if err != nil {
		b.Fatalf("GenerateKey() error = %v", err)
	}
	return key
}

func newAuthority(b *testing.B, cipher adaptive.CipherType) *fwt.Authority {
	b.Helper()
	a, err := fwt.NewAuthority(newKey(b), fwt.WithTokenType("BENCH"), fwt.WithCipherType(cipher))
	if err != nil {
		b.Fatalf("NewAuthority() error = %v", err)
	}
	return a
}

// newService returns a service with one "bench" authority that assigns IDs
// and checks revocations in store.
func newService(b *testing.B, store storage.RevocationStore) *service.TokenService {
	b.Helper()
	svc, err := service.NewTokenService(service.Config{
		MasterKey: newKey(b),
		Authorities: []service.AuthorityConfig{
			{Name: "bench", TokenType: "BENCH", DefaultTTL: time.Hour, AssignIDs: true},
		},
		Revocations: store,
		Logger:      logger.NewNop(),
	})
	if err != nil {
		b.Fatalf("NewTokenService() error = %v", err)
	}
	return svc
}

func openStore(b *testing.B, backend string) storage.RevocationStore {
	b.Helper()
	store, err := storage.Open(storage.Config{
		Backend:       backend,
		InMemory:      true,
		PurgeInterval: time.Hour,
		Logger:        logger.NewNop().Slog(),
	})
	if err != nil {
		b.Fatalf("storage.Open(%s) error = %v", backend, err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}

// prefillRevocations revokes count random IDs for the next hour.
func prefillRevocations(b *testing.B, store storage.RevocationStore, count int) {
	b.Helper()
	ctx := context.Background()
	until := time.Now().Add(time.Hour)
	for i := 0; i < count; i++ {
		if err := store.Revoke(ctx, token.NewID(), until); err != nil {
			b.Fatalf("Revoke() error = %v", err)
		}
	}
}

func randomBytes(size int) []byte {
	data := make([]byte, size)
	rand.Read(data)
	return data
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithRevocationCounts runs a benchmark function with various store sizes.
func runWithRevocationCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("revocations_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

// sizeLabel returns a human-readable size label.
func sizeLabel(size int) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%dMB", size/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
