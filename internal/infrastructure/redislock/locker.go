// Package redislock candado por venta compartido entre instancias del
// servicio, sobre Redis.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/facturacion-sifen/internal/application/fiscal"
	"github.com/jhoicas/facturacion-sifen/internal/domain"
)

var _ fiscal.Locker = (*Locker)(nil)

const (
	keyPrefix    = "sifen:lock:"
	defaultTTL   = 2 * time.Minute
	pollInterval = 50 * time.Millisecond
)

// unlockScript borra la clave solo si el token sigue siendo el nuestro.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extiende el TTL solo si el token sigue siendo el nuestro.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Locker candado con SET NX PX. El TTL acota cuánto queda tomado si el
// proceso muere en medio de una emisión; mientras el dueño lo tenga, se
// renueva cada TTL/3.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect abre el cliente desde una URL redis:// y verifica la conexión.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL inválida: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}
	return client, nil
}

// TTLFor TTL que cubre un envío completo a SIFEN: nunca menor que el
// timeout HTTP más un margen para armar, firmar y guardar.
func TTLFor(configured, sifenTimeout time.Duration) time.Duration {
	if floor := sifenTimeout + 30*time.Second; configured < floor {
		return floor
	}
	return configured
}

// New construye el candado. ttl <= 0 usa 2 minutos.
func New(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// Lock espera hasta tomar la clave o hasta que ctx termine.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	full := keyPrefix + key

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrLocked, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(full, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrLocked, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlockFunc(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(key, token, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// El ctx de la emisión puede estar cancelado; el borrado usa uno propio.
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = unlockScript.Run(ctx, l.client, []string{key}, token).Err()
		})
	}
}

// keepAlive renueva el TTL hasta que se cierre stop o se pierda la clave.
func (l *Locker) keepAlive(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(refreshInterval(l.ttl))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		n, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err == nil && n == 0 {
			return
		}
	}
}

func refreshInterval(ttl time.Duration) time.Duration {
	if every := ttl / 3; every > pollInterval {
		return every
	}
	return pollInterval
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token de candado: %w", err)
	}
	return hex.EncodeToString(b), nil
}
