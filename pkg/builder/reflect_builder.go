package builder

import (
	"fmt"
	"reflect"

	"github.com/parsehive/tagstream/pkg/schema"
)

// ReflectBuilder is the default Builder: it allocates and fills ordinary Go
// values (structs, slices, maps, arrays, pointers) directly via
// reflection. Handles are always *reflect.Value pointing at an addressable
// value, so in-place mutation (SetMapIndex, slice append-and-reassign,
// array indexing) works uniformly across container kinds.
type ReflectBuilder struct{}

// NewReflectBuilder creates a ReflectBuilder.
func NewReflectBuilder() *ReflectBuilder { return &ReflectBuilder{} }

func goType(n *schema.Node) reflect.Type {
	if rt, ok := n.GoType.(reflect.Type); ok {
		return rt
	}
	return nil
}

// NewRecord implements Builder.
func (b *ReflectBuilder) NewRecord(node *schema.Node) (Handle, error) {
	rt := goType(node)
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("builder: record node %q has no backing struct type", node.Name)
	}
	v := reflect.New(rt).Elem()
	return &v, nil
}

// SetField implements Builder.
func (b *ReflectBuilder) SetField(handle Handle, field schema.Field, value any) error {
	v, ok := handle.(*reflect.Value)
	if !ok || v.Kind() != reflect.Struct {
		return fmt.Errorf("builder: SetField on non-struct handle")
	}
	target := v.FieldByName(field.GoFieldName)
	if !target.IsValid() {
		return fmt.Errorf("builder: no struct field backing %q", field.Declared)
	}
	return assign(target, value)
}

// NewContainer implements Builder.
func (b *ReflectBuilder) NewContainer(node *schema.Node) (Handle, error) {
	switch node.Kind {
	case schema.KindSequence, schema.KindSet:
		elemType := goType(node.Elem)
		if elemType == nil {
			elemType = reflect.TypeOf((*any)(nil)).Elem()
		}
		v := reflect.MakeSlice(reflect.SliceOf(elemType), 0, 0)
		holder := reflect.New(v.Type()).Elem()
		holder.Set(v)
		return &holder, nil

	case schema.KindMapping:
		keyType := goType(node.Key)
		valType := goType(node.Value)
		if keyType == nil {
			keyType = reflect.TypeOf("")
		}
		if valType == nil {
			valType = reflect.TypeOf((*any)(nil)).Elem()
		}
		m := reflect.MakeMap(reflect.MapOf(keyType, valType))
		holder := reflect.New(m.Type()).Elem()
		holder.Set(m)
		return &holder, nil

	case schema.KindTuple:
		rt := goType(node)
		if rt == nil || rt.Kind() != reflect.Array {
			return nil, fmt.Errorf("builder: tuple node %q has no backing array type", node.Name)
		}
		v := reflect.New(rt).Elem()
		return &v, nil

	default:
		return nil, fmt.Errorf("builder: NewContainer called for non-container kind %s", node.Kind)
	}
}

// Append implements Builder.
func (b *ReflectBuilder) Append(handle Handle, value any) error {
	v, ok := handle.(*reflect.Value)
	if !ok || v.Kind() != reflect.Slice {
		return fmt.Errorf("builder: Append on non-slice handle")
	}
	elem := reflect.New(v.Type().Elem()).Elem()
	if err := assign(elem, value); err != nil {
		return err
	}
	v.Set(reflect.Append(*v, elem))
	return nil
}

// Insert implements Builder: duplicate keys overwrite, last-write-wins.
func (b *ReflectBuilder) Insert(handle Handle, key, value any) error {
	v, ok := handle.(*reflect.Value)
	if !ok || v.Kind() != reflect.Map {
		return fmt.Errorf("builder: Insert on non-map handle")
	}
	keyVal := reflect.New(v.Type().Key()).Elem()
	if err := assign(keyVal, key); err != nil {
		return err
	}
	elemVal := reflect.New(v.Type().Elem()).Elem()
	if err := assign(elemVal, value); err != nil {
		return err
	}
	v.SetMapIndex(keyVal, elemVal)
	return nil
}

// TupleSet implements Builder.
func (b *ReflectBuilder) TupleSet(handle Handle, index int, value any) error {
	v, ok := handle.(*reflect.Value)
	if !ok || v.Kind() != reflect.Array {
		return fmt.Errorf("builder: TupleSet on non-array handle")
	}
	if index < 0 || index >= v.Len() {
		return fmt.Errorf("builder: tuple index %d out of range [0,%d)", index, v.Len())
	}
	return assign(v.Index(index), value)
}

// BindRoot implements RootBinder: target must be a non-nil pointer. The
// returned handle addresses the pointee directly, so every subsequent
// SetField/Append/Insert/TupleSet call mutates the caller's own memory.
func (b *ReflectBuilder) BindRoot(node *schema.Node, target any) (Handle, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("builder: BindRoot requires a non-nil pointer, got %T", target)
	}
	elem := rv.Elem()
	return &elem, nil
}

// Finalize implements Builder: unwraps the *reflect.Value handle back into
// a plain value via Interface().
func (b *ReflectBuilder) Finalize(handle Handle) (any, error) {
	v, ok := handle.(*reflect.Value)
	if !ok {
		return handle, nil
	}
	return v.Interface(), nil
}

// assign writes value into target, coercing between Go's numeric kinds and
// unwrapping nested *reflect.Value handles (records/containers assigned as
// a field or element of another record/container), and taking the address
// of target when it backs a pointer/optional field.
func assign(target reflect.Value, value any) error {
	if nested, ok := value.(*reflect.Value); ok {
		value = nested.Interface()
	}
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	if target.Kind() == reflect.Ptr {
		inner := reflect.New(target.Type().Elem())
		if err := assign(inner.Elem(), value); err != nil {
			return err
		}
		target.Set(inner)
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(target.Type()) {
		target.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(target.Type()) {
		target.Set(rv.Convert(target.Type()))
		return nil
	}
	return fmt.Errorf("builder: cannot assign %s into %s", rv.Type(), target.Type())
}
