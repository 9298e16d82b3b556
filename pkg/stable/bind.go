package stable

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/marshal"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// Realm function names registered by Bind.
const (
	FuncGet         = "stableMapGet"
	FuncInsert      = "stableMapInsert"
	FuncRemove      = "stableMapRemove"
	FuncContainsKey = "stableMapContainsKey"
	FuncLen         = "stableMapLen"
	FuncItems       = "stableMapItems"
)

// binder converts between realm values and stored bytes for declared maps.
type binder struct {
	store *Store
	maps  map[uint8]ir.StableMap
	types marshal.Resolver
}

// Bind declares maps in s and registers the stableMap* functions on realm.
//
// Every function takes the map id as its first argument. Optional results are
// [] when absent and [v] when present. Any failure is thrown into the script.
// ctx bounds the declaration step only; realm functions run without a
// deadline because calls are not cancellable.
func Bind(ctx context.Context, realm *vm.Realm, s *Store, maps []ir.StableMap, g marshal.Resolver) error {
	b := &binder{store: s, maps: make(map[uint8]ir.StableMap, len(maps)), types: g}
	for _, sm := range maps {
		if prev, dup := b.maps[sm.ID]; dup {
			return fmt.Errorf("stable map id %d used by both %s and %s", sm.ID, prev.Name, sm.Name)
		}
		d, err := declaration(sm)
		if err != nil {
			return err
		}
		if err := s.Declare(ctx, d); err != nil {
			return err
		}
		b.maps[sm.ID] = sm
	}

	realm.Define(FuncGet, b.get)
	realm.Define(FuncInsert, b.insert)
	realm.Define(FuncRemove, b.remove)
	realm.Define(FuncContainsKey, b.containsKey)
	realm.Define(FuncLen, b.length)
	realm.Define(FuncItems, b.items)
	return nil
}

func declaration(sm ir.StableMap) (Declaration, error) {
	key, err := ir.MarshalCanonical(ir.Describe(sm.Key))
	if err != nil {
		return Declaration{}, fmt.Errorf("stable map %s key: %w", sm.Name, err)
	}
	value, err := ir.MarshalCanonical(ir.Describe(sm.Value))
	if err != nil {
		return Declaration{}, fmt.Errorf("stable map %s value: %w", sm.Name, err)
	}
	return Declaration{MapID: sm.ID, Name: sm.Name, KeyType: string(key), ValueType: string(value)}, nil
}

func (b *binder) get(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
	sm, key, err := b.mapAndKey(FuncGet, args)
	if err != nil {
		return nil, err
	}
	raw, ok, err := b.store.Get(context.Background(), sm.ID, key)
	if err != nil {
		return nil, storageFailure(err)
	}
	return b.optValue(sm, raw, ok)
}

func (b *binder) insert(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
	sm, key, err := b.mapAndKey(FuncInsert, args)
	if err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, vm.ThrowError("TypeError", FuncInsert+": missing value")
	}
	value, err := b.encodeStored(sm.Value, args[2])
	if err != nil {
		return nil, err
	}
	prev, had, err := b.store.Insert(context.Background(), sm.ID, key, value)
	if err != nil {
		return nil, storageFailure(err)
	}
	return b.optValue(sm, prev, had)
}

func (b *binder) remove(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
	sm, key, err := b.mapAndKey(FuncRemove, args)
	if err != nil {
		return nil, err
	}
	prev, had, err := b.store.Remove(context.Background(), sm.ID, key)
	if err != nil {
		return nil, storageFailure(err)
	}
	return b.optValue(sm, prev, had)
}

func (b *binder) containsKey(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
	sm, key, err := b.mapAndKey(FuncContainsKey, args)
	if err != nil {
		return nil, err
	}
	found, err := b.store.ContainsKey(context.Background(), sm.ID, key)
	if err != nil {
		return nil, storageFailure(err)
	}
	return vm.Bool(found), nil
}

func (b *binder) length(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
	sm, err := b.mapArg(FuncLen, args)
	if err != nil {
		return nil, err
	}
	n, err := b.store.Len(context.Background(), sm.ID)
	if err != nil {
		return nil, storageFailure(err)
	}
	return vm.BigInt{V: new(big.Int).SetUint64(n)}, nil
}

// items takes (id, startIndex?, length?) and returns [[key, value], ...]
// in the byte order of the encoded keys (see Store.Items).
func (b *binder) items(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
	sm, err := b.mapArg(FuncItems, args)
	if err != nil {
		return nil, err
	}
	start, err := countArg(FuncItems, args, 1)
	if err != nil {
		return nil, err
	}
	limit, err := countArg(FuncItems, args, 2)
	if err != nil {
		return nil, err
	}

	entries, err := b.store.Items(context.Background(), sm.ID, start, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	out := make(vm.Array, len(entries))
	for i, e := range entries {
		k, err := b.decodeStored(sm.Key, e.Key)
		if err != nil {
			return nil, err
		}
		v, err := b.decodeStored(sm.Value, e.Value)
		if err != nil {
			return nil, err
		}
		out[i] = vm.Array{k, v}
	}
	return out, nil
}

func (b *binder) mapArg(fn string, args []vm.Value) (ir.StableMap, error) {
	if len(args) == 0 {
		return ir.StableMap{}, vm.ThrowError("TypeError", fn+": missing map id")
	}
	n, ok := args[0].(vm.Number)
	if !ok || n != vm.Number(math.Trunc(float64(n))) || n < 0 || n > 255 {
		return ir.StableMap{}, vm.ThrowError("TypeError", fmt.Sprintf("%s: invalid map id %s", fn, vm.Describe(args[0])))
	}
	sm, ok := b.maps[uint8(n)]
	if !ok {
		return ir.StableMap{}, vm.ThrowError("RangeError", fmt.Sprintf("%s: no stable map with id %d", fn, uint8(n)))
	}
	return sm, nil
}

func (b *binder) mapAndKey(fn string, args []vm.Value) (ir.StableMap, []byte, error) {
	sm, err := b.mapArg(fn, args)
	if err != nil {
		return ir.StableMap{}, nil, err
	}
	if len(args) < 2 {
		return ir.StableMap{}, nil, vm.ThrowError("TypeError", fn+": missing key")
	}
	key, err := b.encodeStored(sm.Key, args[1])
	if err != nil {
		return ir.StableMap{}, nil, err
	}
	return sm, key, nil
}

// encodeStored serializes a realm value through its declared type.
func (b *binder) encodeStored(node ir.TypeNode, v vm.Value) ([]byte, error) {
	w, err := marshal.Decode(b.types, node, v)
	if err != nil {
		return nil, marshalFailure(err)
	}
	raw, err := wire.Marshal(w)
	if err != nil {
		return nil, marshalFailure(err)
	}
	return raw, nil
}

// decodeStored turns stored bytes back into a realm value.
func (b *binder) decodeStored(node ir.TypeNode, raw []byte) (vm.Value, error) {
	w, err := wire.Unmarshal(raw)
	if err != nil {
		return nil, marshalFailure(err)
	}
	if err := marshal.Conform(b.types, node, w); err != nil {
		return nil, marshalFailure(err)
	}
	v, err := marshal.Encode(b.types, node, w)
	if err != nil {
		return nil, marshalFailure(err)
	}
	return v, nil
}

func (b *binder) optValue(sm ir.StableMap, raw []byte, ok bool) (vm.Value, error) {
	if !ok {
		return vm.Array{}, nil
	}
	v, err := b.decodeStored(sm.Value, raw)
	if err != nil {
		return nil, err
	}
	return vm.Array{v}, nil
}

// countArg reads an optional non-negative integer argument. Absent means 0.
func countArg(fn string, args []vm.Value, i int) (int, error) {
	if i >= len(args) {
		return 0, nil
	}
	switch n := args[i].(type) {
	case vm.Undefined:
		return 0, nil
	case vm.Number:
		if n >= 0 && n == vm.Number(math.Trunc(float64(n))) && n <= math.MaxInt32 {
			return int(n), nil
		}
	}
	return 0, vm.ThrowError("TypeError", fmt.Sprintf("%s: argument %d must be a non-negative integer, got %s", fn, i, vm.Describe(args[i])))
}

func marshalFailure(err error) error {
	if te, ok := trap.As(err); ok {
		return vm.ThrowError("TypeError", te.Body())
	}
	return vm.ThrowError("TypeError", err.Error())
}

func storageFailure(err error) error {
	return vm.ThrowError("Error", err.Error())
}
