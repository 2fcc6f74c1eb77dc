package report

// OrderedMap is a map that remembers the order in which keys were first inserted.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. Overwriting keeps the original position.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// GetOrInit returns the value stored under key, storing init() first when absent.
func (m *OrderedMap[K, V]) GetOrInit(key K, init func() V) V {
	if v, ok := m.values[key]; ok {
		return v
	}
	v := init()
	m.Set(key, v)
	return v
}

func (m *OrderedMap[K, V]) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap[K, V]) Each(fn func(key K, value V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}
