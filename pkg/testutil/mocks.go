// Package testutil provides mock implementations for testing code built on
// top of the schema and builder packages.
package testutil

import (
	"fmt"
	"sync"

	"github.com/parsehive/tagstream/pkg/builder"
	"github.com/parsehive/tagstream/pkg/schema"
)

// MockProvider is a mock implementation of schema.Provider for testing
// callers that depend on a Provider without needing real reflection.
type MockProvider struct {
	DescribeFunc       func(target any) (*schema.Node, error)
	ResolveVariantFunc func(union *schema.Node, tagName string) (*schema.Node, bool)
	ResolveAliasFunc   func(name string) (*schema.Node, bool)

	// Call tracking
	mu                  sync.Mutex
	DescribeCalls       []any
	ResolveVariantCalls []string
	ResolveAliasCalls   []string
}

func (m *MockProvider) Describe(target any) (*schema.Node, error) {
	m.mu.Lock()
	m.DescribeCalls = append(m.DescribeCalls, target)
	m.mu.Unlock()

	if m.DescribeFunc != nil {
		return m.DescribeFunc(target)
	}
	return nil, fmt.Errorf("testutil: MockProvider.Describe not configured")
}

func (m *MockProvider) ResolveVariant(union *schema.Node, tagName string) (*schema.Node, bool) {
	m.mu.Lock()
	m.ResolveVariantCalls = append(m.ResolveVariantCalls, tagName)
	m.mu.Unlock()

	if m.ResolveVariantFunc != nil {
		return m.ResolveVariantFunc(union, tagName)
	}
	return nil, false
}

func (m *MockProvider) ResolveAlias(name string) (*schema.Node, bool) {
	m.mu.Lock()
	m.ResolveAliasCalls = append(m.ResolveAliasCalls, name)
	m.mu.Unlock()

	if m.ResolveAliasFunc != nil {
		return m.ResolveAliasFunc(name)
	}
	return nil, false
}

// MockBuilder is a mock implementation of builder.Builder for testing the
// parser engine's call sequence without a real target type. Every
// record/container handle defaults to a *recordHandle/*containerHandle
// carrying a plain field bag, good enough for assertions that don't need
// a real Go struct.
type MockBuilder struct {
	NewRecordFunc    func(node *schema.Node) (builder.Handle, error)
	SetFieldFunc     func(handle builder.Handle, field schema.Field, value any) error
	NewContainerFunc func(node *schema.Node) (builder.Handle, error)
	AppendFunc       func(handle builder.Handle, value any) error
	InsertFunc       func(handle builder.Handle, key, value any) error
	TupleSetFunc     func(handle builder.Handle, index int, value any) error
	FinalizeFunc     func(handle builder.Handle) (any, error)

	mu                sync.Mutex
	NewRecordCalls    []*schema.Node
	SetFieldCalls     []SetFieldCall
	NewContainerCalls []*schema.Node
	AppendCalls       []AppendCall
	InsertCalls       []InsertCall
	TupleSetCalls     []TupleSetCall
	FinalizeCalls     []builder.Handle
}

// SetFieldCall records one SetField invocation for assertion in tests.
type SetFieldCall struct {
	Handle builder.Handle
	Field  schema.Field
	Value  any
}

// AppendCall records one Append invocation.
type AppendCall struct {
	Handle builder.Handle
	Value  any
}

// InsertCall records one Insert invocation.
type InsertCall struct {
	Handle     builder.Handle
	Key, Value any
}

// TupleSetCall records one TupleSet invocation.
type TupleSetCall struct {
	Handle builder.Handle
	Index  int
	Value  any
}

type recordHandle struct {
	node   *schema.Node
	fields map[string]any
}

type containerHandle struct {
	node    *schema.Node
	items   []any
	entries map[any]any
	tuple   []any
}

func (m *MockBuilder) NewRecord(node *schema.Node) (builder.Handle, error) {
	m.mu.Lock()
	m.NewRecordCalls = append(m.NewRecordCalls, node)
	m.mu.Unlock()

	if m.NewRecordFunc != nil {
		return m.NewRecordFunc(node)
	}
	return &recordHandle{node: node, fields: make(map[string]any)}, nil
}

func (m *MockBuilder) SetField(handle builder.Handle, field schema.Field, value any) error {
	m.mu.Lock()
	m.SetFieldCalls = append(m.SetFieldCalls, SetFieldCall{handle, field, value})
	m.mu.Unlock()

	if m.SetFieldFunc != nil {
		return m.SetFieldFunc(handle, field, value)
	}
	rh, ok := handle.(*recordHandle)
	if !ok {
		return fmt.Errorf("testutil: SetField on non-record handle %T", handle)
	}
	rh.fields[field.Wire] = value
	return nil
}

func (m *MockBuilder) NewContainer(node *schema.Node) (builder.Handle, error) {
	m.mu.Lock()
	m.NewContainerCalls = append(m.NewContainerCalls, node)
	m.mu.Unlock()

	if m.NewContainerFunc != nil {
		return m.NewContainerFunc(node)
	}
	ch := &containerHandle{node: node}
	if node.Kind == schema.KindMapping {
		ch.entries = make(map[any]any)
	}
	if node.Kind == schema.KindTuple {
		ch.tuple = make([]any, len(node.Items))
	}
	return ch, nil
}

func (m *MockBuilder) Append(handle builder.Handle, value any) error {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, AppendCall{handle, value})
	m.mu.Unlock()

	if m.AppendFunc != nil {
		return m.AppendFunc(handle, value)
	}
	ch, ok := handle.(*containerHandle)
	if !ok {
		return fmt.Errorf("testutil: Append on non-container handle %T", handle)
	}
	ch.items = append(ch.items, value)
	return nil
}

func (m *MockBuilder) Insert(handle builder.Handle, key, value any) error {
	m.mu.Lock()
	m.InsertCalls = append(m.InsertCalls, InsertCall{handle, key, value})
	m.mu.Unlock()

	if m.InsertFunc != nil {
		return m.InsertFunc(handle, key, value)
	}
	ch, ok := handle.(*containerHandle)
	if !ok {
		return fmt.Errorf("testutil: Insert on non-container handle %T", handle)
	}
	ch.entries[key] = value
	return nil
}

func (m *MockBuilder) TupleSet(handle builder.Handle, index int, value any) error {
	m.mu.Lock()
	m.TupleSetCalls = append(m.TupleSetCalls, TupleSetCall{handle, index, value})
	m.mu.Unlock()

	if m.TupleSetFunc != nil {
		return m.TupleSetFunc(handle, index, value)
	}
	ch, ok := handle.(*containerHandle)
	if !ok || index < 0 || index >= len(ch.tuple) {
		return fmt.Errorf("testutil: TupleSet out of range on handle %T index %d", handle, index)
	}
	ch.tuple[index] = value
	return nil
}

func (m *MockBuilder) Finalize(handle builder.Handle) (any, error) {
	m.mu.Lock()
	m.FinalizeCalls = append(m.FinalizeCalls, handle)
	m.mu.Unlock()

	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(handle)
	}
	return handle, nil
}
