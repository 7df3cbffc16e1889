package view

import (
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) commit(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.values...)
}

func TestDebouncer_CommitsLatestAfterQuiescence(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(30*time.Millisecond, rec.commit)

	d.Set("g")
	d.Set("go")
	d.Set("gop")

	v, ok := d.Pending()
	assert.Equal(t, ok, true)
	assert.Equal(t, v, "gop")
	assert.Equal(t, len(rec.got()), 0)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, rec.got(), []string{"gop"})

	_, ok = d.Pending()
	assert.Equal(t, ok, false)
}

func TestDebouncer_Flush(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(time.Hour, rec.commit)

	d.Flush()
	assert.Equal(t, len(rec.got()), 0)

	d.Set("now")
	d.Flush()
	assert.Equal(t, rec.got(), []string{"now"})
}

func TestDebouncer_StopDiscardsPending(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(20*time.Millisecond, rec.commit)

	d.Set("lost")
	d.Stop()
	d.Set("ignored")
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, len(rec.got()), 0)
}

func TestDebouncer_ZeroWindowCommitsImmediately(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(0, rec.commit)

	d.Set("a")
	d.Set("b")
	assert.Equal(t, rec.got(), []string{"a", "b"})
}
