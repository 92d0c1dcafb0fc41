package vulkan

// handleAllocator hands out Handles that are unique across every table
// sharing it.
type handleAllocator struct {
	next Handle
}

func (a *handleAllocator) allocate() Handle {
	a.next++
	return a.next
}

// handleTable maps Handles to driver objects of one kind.
type handleTable[T any] struct {
	ids   *handleAllocator
	items map[Handle]T
}

func newHandleTable[T any](ids *handleAllocator) handleTable[T] {
	return handleTable[T]{ids: ids, items: make(map[Handle]T)}
}

func (t *handleTable[T]) put(v T) Handle {
	h := t.ids.allocate()
	t.items[h] = v
	return h
}

func (t *handleTable[T]) get(h Handle) (T, bool) {
	v, ok := t.items[h]
	return v, ok
}

// take removes h from the table and returns what it referenced.
func (t *handleTable[T]) take(h Handle) (T, bool) {
	v, ok := t.items[h]
	if ok {
		delete(t.items, h)
	}
	return v, ok
}

func (t *handleTable[T]) len() int {
	return len(t.items)
}
