package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"
)

// A buffer borrowed from a BufferPool. Close returns it.
type PooledBuffer interface {
	io.Closer
	// Exactly the requested size. Invalid after Close.
	Bytes() []byte

	poolSize() int64
}

// Hands out fixed size byte buffers for shifting file contents. Implementations are safe for
// concurrent use, so one pool can serve many editors.
type BufferPool interface {
	Get(ctx context.Context, size int) (PooledBuffer, error)
}

type pool struct {
	mu      sync.RWMutex
	buffers map[int]*sync.Pool
}

type buffer struct {
	b    *[]byte
	pool *pool
}

func (b *buffer) Bytes() []byte {
	return *b.b
}

func (b *buffer) poolSize() int64 {
	return int64(len(*b.b))
}

var ErrNotInPool = errors.New("buffer not in pool")

func (b *buffer) Close() error {
	if b.b == nil {
		return nil
	}
	put := b.pool.put(b.b)
	b.b = nil
	if put {
		return nil
	}
	return ErrNotInPool
}

func (p *pool) Get(ctx context.Context, size int) (PooledBuffer, error) {
	p.mu.RLock()
	sp, ok := p.buffers[size]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		sp, ok = p.buffers[size]
		if !ok {
			sp = &sync.Pool{
				New: func() any {
					b := make([]byte, size)
					return &b
				},
			}
			p.buffers[size] = sp
		}
		p.mu.Unlock()
	}

	return &buffer{sp.Get().(*[]byte), p}, nil
}

func (p *pool) put(b *[]byte) bool {
	p.mu.RLock()
	sp, ok := p.buffers[len(*b)]
	p.mu.RUnlock()

	if !ok {
		return false
	}

	sp.Put(b)
	return true
}

func NewBufferPool() BufferPool {
	return &pool{
		buffers: map[int]*sync.Pool{},
	}
}

type limitedPool struct {
	buffers BufferPool
	limit   int64
	semMax  *semaphore.Weighted
}

type limitedBuffer struct {
	PooledBuffer
	semMax   *semaphore.Weighted
	released bool
}

func (b *limitedBuffer) Close() error {
	if b.released {
		return nil
	}
	b.released = true
	size := b.poolSize()
	err := b.PooledBuffer.Close()
	b.semMax.Release(size)
	return err
}

// Get blocks until the total size of outstanding buffers is within limit.
func (p *limitedPool) Get(ctx context.Context, size int) (PooledBuffer, error) {
	if int64(size) > p.limit {
		return nil, fmt.Errorf("buffer size %v exceeds pool limit %v", size, p.limit)
	}
	if err := p.semMax.Acquire(ctx, int64(size)); err != nil {
		return nil, err
	}

	buff, err := p.buffers.Get(ctx, size)

	if err != nil {
		p.semMax.Release(int64(size))
		return nil, err
	}

	return &limitedBuffer{PooledBuffer: buff, semMax: p.semMax}, nil
}

// Limits the total bytes outstanding from pool. A Get larger than limit fails immediately rather
// than blocking forever.
func NewLimitedBufferPool(pool BufferPool, limit int64) BufferPool {
	return &limitedPool{
		buffers: pool,
		limit:   limit,
		semMax:  semaphore.NewWeighted(limit),
	}
}
