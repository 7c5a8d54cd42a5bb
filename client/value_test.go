package client

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	v := NewValue(1)

	var got []int
	unsub := v.Subscribe(func(i int) { got = append(got, i) })
	assert.Equal(t, []int{1}, got, "current value delivered on subscribe")

	v.Set(2)
	v.Set(3)
	assert.Equal(t, 3, v.Get())
	assert.Equal(t, []int{1, 2, 3}, got)

	unsub()
	unsub() // no-op
	v.Set(4)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 4, v.Get())
}

func TestValue_multipleSubscribers(t *testing.T) {
	v := NewValue("a")
	var first, second []string
	unsub1 := v.Subscribe(func(s string) { first = append(first, s) })
	v.Set("b")
	v.Subscribe(func(s string) { second = append(second, s) })
	unsub1()
	v.Set("c")

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, []string{"b", "c"}, second)
}

func TestValue_concurrentSet(t *testing.T) {
	v := NewValue(0)
	var (
		mu  sync.Mutex
		got []int
	)
	v.Subscribe(func(i int) {
		mu.Lock()
		got = append(got, i)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v.Set(i)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 51)
	assert.Equal(t, got[len(got)-1], v.Get(), "last delivery is the current value")
}
