package chatkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type OrderedKV[T any] struct {
	Value T
	Order int64
}

// OrderedKVMap is a JSON object that remembers the order its keys were
// decoded or inserted in.
type OrderedKVMap[T any] map[string]OrderedKV[T]

type OrderedPair[T any] struct {
	Key   string
	Value T
}

// Set replaces the value under key, keeping its position, or appends it.
func (om OrderedKVMap[T]) Set(key string, value T) {
	if current, ok := om[key]; ok {
		om[key] = OrderedKV[T]{Value: value, Order: current.Order}
		return
	}
	var next int64
	for _, v := range om {
		if v.Order >= next {
			next = v.Order + 1
		}
	}
	om[key] = OrderedKV[T]{Value: value, Order: next}
}

func (om OrderedKVMap[T]) Get(key string) (T, bool) {
	v, ok := om[key]
	return v.Value, ok
}

// Pairs returns the entries in insertion order.
func (om OrderedKVMap[T]) Pairs() []OrderedPair[T] {
	type entry struct {
		pair  OrderedPair[T]
		order int64
	}
	entries := make([]entry, 0, len(om))
	for k, v := range om {
		entries = append(entries, entry{pair: OrderedPair[T]{Key: k, Value: v.Value}, order: v.Order})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].order == entries[j].order {
			return entries[i].pair.Key < entries[j].pair.Key
		}
		return entries[i].order < entries[j].order
	})

	pairs := make([]OrderedPair[T], len(entries))
	for i, e := range entries {
		pairs[i] = e.pair
	}
	return pairs
}

func (om OrderedKVMap[T]) Keys() []string {
	pairs := om.Pairs()
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	return keys
}

// Clone copies the map; values are copied shallowly.
func (om OrderedKVMap[T]) Clone() OrderedKVMap[T] {
	if om == nil {
		return nil
	}
	out := make(OrderedKVMap[T], len(om))
	for k, v := range om {
		out[k] = v
	}
	return out
}

func (om OrderedKVMap[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range om.Pairs() {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (om *OrderedKVMap[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*om = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected object, got %v", tok)
	}

	result := make(OrderedKVMap[T])
	var order int64
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ordered map: expected key, got %v", tok)
		}

		var value T
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("ordered map: failed to decode %q: %v", key, err)
		}
		result[key] = OrderedKV[T]{Value: value, Order: order}
		order++
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*om = result
	return nil
}
