// Package parser drives a type-directed push-down automaton over a
// scanner's tag-event stream, incrementally constructing a target value
// through the Builder bridge and exposing a live, always-valid partial
// view of it while the stream is still arriving.
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/parsehive/tagstream/pkg/builder"
	"github.com/parsehive/tagstream/pkg/diag"
	"github.com/parsehive/tagstream/pkg/scanner"
	"github.com/parsehive/tagstream/pkg/schema"
	"github.com/parsehive/tagstream/pkg/telemetry"
)

// Engine incrementally parses a tag stream into target, which must be a
// pointer to the destination value. The root is always treated as an
// implicit record or container: the stream's top-level tags are its
// fields or items directly, with no enclosing wrapper tag of their own.
// A wrapper tag at the root is a structural mismatch and is reported as
// an unexpected tag like any other.
type Engine struct {
	ID uuid.UUID

	scanner  *scanner.Scanner
	provider schema.Provider
	build    builder.Builder
	options  Options
	throttle *ChangeThrottle

	target   any
	rootNode *schema.Node
	stack    []*frame

	diagnostics []*diag.Diagnostic
	fatal       error
	complete    bool
	changed     bool

	telemetry *telemetry.Settings
	tracer    trace.Tracer
}

// New creates an Engine for target, a pointer to the destination value.
func New(target any, provider schema.Provider, b builder.Builder, opts Options) (*Engine, error) {
	node, err := provider.Describe(target)
	if err != nil {
		return nil, fmt.Errorf("parser: describing root type: %w", err)
	}
	root, _ := unwrapOptional(node)
	if root.Kind == schema.KindUnion {
		return nil, fmt.Errorf("parser: root type may not be a union; wrap it in a record field")
	}

	var handle builder.Handle
	if binder, ok := b.(builder.RootBinder); ok {
		handle, err = binder.BindRoot(root, target)
	} else {
		switch root.Kind {
		case schema.KindRecord:
			handle, err = b.NewRecord(root)
		default:
			handle, err = b.NewContainer(root)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parser: binding root: %w", err)
	}

	rootFrame := &frame{tagName: "", resolved: root, handle: handle, populated: make(map[string]bool)}

	return &Engine{
		ID:       uuid.New(),
		scanner:  scanner.New(opts.IgnoredTags),
		provider: provider,
		build:    b,
		options:  opts,
		target:   target,
		rootNode: root,
		stack:    []*frame{rootFrame},
	}, nil
}

// WithThrottle attaches a ChangeThrottle used by Changed() to rate-limit
// how often it reports a pending change.
func (e *Engine) WithThrottle(t *ChangeThrottle) *Engine {
	e.throttle = t
	return e
}

// Changed reports whether the partial view has changed since the last
// call to Changed, subject to the rate limit of a throttle attached via
// WithThrottle (no throttle means every change is reported). A pending
// change that the throttle withholds stays pending and is reported on a
// later call once the throttle allows it, rather than being lost.
func (e *Engine) Changed() bool {
	if !e.changed {
		return false
	}
	if e.throttle != nil && !e.throttle.Allow() {
		return false
	}
	e.changed = false
	return true
}

// WithTelemetry enables span recording for Feed calls. Disabled settings
// (or a nil argument) make Feed fall back to the no-op tracer, so this is
// safe to call unconditionally from wiring code.
func (e *Engine) WithTelemetry(settings *telemetry.Settings) *Engine {
	e.telemetry = settings
	e.tracer = telemetry.GetTracer(settings)
	return e
}

func (e *Engine) top() *frame { return e.stack[len(e.stack)-1] }

// Feed consumes chunk and advances the automaton. It returns a non-nil
// error only for a fatal, stream-level failure (ErrDepthExceeded,
// ErrUnexpectedTag/ErrUnknownVariant in strict mode); everything else is
// recorded as a Diagnostic and parsing continues.
func (e *Engine) Feed(chunk []byte) error {
	if e.telemetry != nil && e.telemetry.IsEnabled {
		return e.feedTraced(chunk)
	}
	return e.feed(chunk)
}

func (e *Engine) feedTraced(chunk []byte) error {
	before := len(e.diagnostics)
	attrs := telemetry.GetBaseAttributes(e.telemetry.StreamID, len(chunk), len(e.stack), e.telemetry)
	_, err := telemetry.RecordSpan(context.Background(), e.tracer, telemetry.SpanOptions{
		Name:        "tagstream.feed",
		Attributes:  attrs,
		EndWhenDone: true,
	}, func(ctx context.Context, span trace.Span) (struct{}, error) {
		err := e.feed(chunk)
		if e.telemetry.RecordDiagnostics && len(e.diagnostics) > before {
			counts := make(map[string]int)
			for _, d := range e.diagnostics[before:] {
				counts[string(d.Kind)]++
			}
			telemetry.AddDiagnosticAttributes(span, counts)
		}
		return struct{}{}, err
	})
	return err
}

func (e *Engine) feed(chunk []byte) error {
	if e.fatal != nil {
		return e.fatal
	}
	for _, ev := range e.scanner.Feed(chunk) {
		if err := e.dispatch(ev); err != nil {
			e.fatal = err
			return err
		}
	}
	return nil
}

func (e *Engine) dispatch(ev scanner.Event) error {
	switch ev.Kind {
	case scanner.ScannerError:
		e.diagnostics = append(e.diagnostics, ev.Diagnostic)
		return nil
	case scanner.Start:
		return e.onStart(ev)
	case scanner.End:
		return e.onEnd(ev)
	case scanner.Text, scanner.CData:
		e.onText(ev)
		return nil
	default:
		return nil
	}
}

func (e *Engine) onStart(ev scanner.Event) error {
	if e.options.MaxDepth > 0 && len(e.stack) >= e.options.MaxDepth {
		return diag.ErrDepthExceeded
	}

	top := e.top()
	explicitType, _ := ev.Attr("type")

	if top.pendingUnion && top.resolved == nil {
		return e.startUnderPendingUnion(top, ev, explicitType)
	}

	switch top.resolved.Kind {
	case schema.KindRecord:
		field, ok := top.resolved.FieldByWire(ev.Name)
		if !ok {
			if uf, variant, uok := findUnionFieldByVariantName(top.resolved, ev.Name, top.populated); uok {
				child, err := e.openFrame(ev.Name, variant, explicitType)
				if err != nil {
					return err
				}
				child.parentField = uf
				child.hasParentField = true
				return e.pushAndMaybeClose(child, ev)
			}
			e.reportUnexpected(ev)
			if e.options.StrictMode {
				return diag.ErrUnexpectedTag
			}
			return e.pushAndMaybeClose(discardFrame(ev.Name), ev)
		}
		if top.populated[field.Wire] {
			return e.pushAndMaybeClose(discardFrame(ev.Name), ev)
		}
		child, err := e.openFrame(ev.Name, field.Type, explicitType)
		if err != nil {
			return err
		}
		child.parentField = field
		child.hasParentField = true
		return e.pushAndMaybeClose(child, ev)

	case schema.KindSequence, schema.KindSet:
		child, err := e.openFrame(ev.Name, top.resolved.Elem, explicitType)
		if err != nil {
			return err
		}
		child.isContainerItem = true
		return e.pushAndMaybeClose(child, ev)

	case schema.KindTuple:
		idx := top.tupleIndex
		if idx >= len(top.resolved.Items) {
			e.diagnostics = append(e.diagnostics, diag.ArityError(ev.Span, e.path(), "tuple item beyond declared arity"))
			return e.pushAndMaybeClose(discardFrame(ev.Name), ev)
		}
		top.tupleIndex++
		child, err := e.openFrame(ev.Name, top.resolved.Items[idx], explicitType)
		if err != nil {
			return err
		}
		child.isTupleItem = true
		child.tupleIndex = idx
		return e.pushAndMaybeClose(child, ev)

	case schema.KindMapping:
		key, ok := ev.Attr("key")
		if !ok {
			e.diagnostics = append(e.diagnostics, diag.ArityError(ev.Span, e.path(), "mapping entry missing key attribute"))
			return e.pushAndMaybeClose(discardFrame(ev.Name), ev)
		}
		child, err := e.openFrame(ev.Name, top.resolved.Value, explicitType)
		if err != nil {
			return err
		}
		child.isMapEntry = true
		child.mapKey = key
		return e.pushAndMaybeClose(child, ev)

	default:
		// Scalar/Any frames don't expect children; swallow the subtree.
		e.reportUnexpected(ev)
		return e.pushAndMaybeClose(discardFrame(ev.Name), ev)
	}
}

// pushAndMaybeClose pushes child as the new top frame and, for a
// self-closing tag, immediately synthesizes the matching close: the
// scanner reports a self-closing Start with no End event of its own,
// so without this the frame would dangle on the stack forever, unable to
// be Finalized and swallowing every sibling that follows as its child.
func (e *Engine) pushAndMaybeClose(child *frame, ev scanner.Event) error {
	e.push(child)
	if ev.SelfClosing {
		return e.onEnd(ev)
	}
	return nil
}

// startUnderPendingUnion handles a Start event whose parent frame hasn't
// resolved its union variant yet. The child's wire name is recorded
// immediately (it's part of the structural signature); if that's enough to
// resolve the union, the parent commits and replays its buffered fields
// before this child is pushed as an ordinary field frame. Otherwise the
// child is captured as opaque text, a deliberate simplification: nested
// non-scalar content inside a not-yet-resolved union forces resolution
// using whatever wire names are known so far.
func (e *Engine) startUnderPendingUnion(top *frame, ev scanner.Event, explicitType string) error {
	candidateNames := append(append([]string{}, top.rawOrder...), ev.Name)
	variant, d := resolveUnion(e.provider, top.unionTarget, "", "", candidateNames, e.options.Selector)
	if d != nil {
		e.diagnostics = append(e.diagnostics, d)
	}
	if variant != nil {
		if err := e.commitUnion(top, variant); err != nil {
			return err
		}
		return e.onStart(ev) // re-dispatch now that top.resolved is set
	}

	child := &frame{tagName: ev.Name, resolved: &schema.Node{Kind: schema.KindAny}}
	return e.pushAndMaybeClose(child, ev)
}

// openFrame resolves declared (unwrapping Optional, resolving Union at the
// explicit/nominal discriminator levels) and allocates the frame's backing
// value. If declared is a union that neither an explicit type attribute
// nor a nominal tag match could resolve, the frame is left pendingUnion
// and buffers its children until a structural match is possible.
func (e *Engine) openFrame(tagName string, declared *schema.Node, explicitType string) (*frame, error) {
	target, _ := unwrapOptional(declared)

	if target.Kind == schema.KindUnion {
		variant, d := resolveUnion(e.provider, target, explicitType, tagName, nil, e.options.Selector)
		if d != nil {
			e.diagnostics = append(e.diagnostics, d)
		}
		if variant == nil {
			return &frame{tagName: tagName, pendingUnion: true, unionTarget: target}, nil
		}
		target = variant
	}

	f := &frame{tagName: tagName, resolved: target}
	switch target.Kind {
	case schema.KindRecord:
		f.populated = make(map[string]bool)
		h, err := e.build.NewRecord(target)
		if err != nil {
			return nil, err
		}
		f.handle = h
	case schema.KindSequence, schema.KindSet, schema.KindMapping, schema.KindTuple:
		h, err := e.build.NewContainer(target)
		if err != nil {
			return nil, err
		}
		f.handle = h
	}
	return f, nil
}

// commitUnion resolves top's pending union to variant, builds its handle,
// and replays every buffered raw field into it via SetField, honoring the
// same sticky-first-write rule a normally-resolved record enforces.
func (e *Engine) commitUnion(top *frame, variant *schema.Node) error {
	top.resolved = variant
	top.pendingUnion = false

	if variant.Kind != schema.KindRecord {
		return nil
	}
	h, err := e.build.NewRecord(variant)
	if err != nil {
		return err
	}
	top.handle = h
	top.populated = make(map[string]bool)

	for _, rf := range top.rawFields {
		if !rf.assignable {
			continue
		}
		field, ok := variant.FieldByWire(rf.wire)
		if !ok || top.populated[field.Wire] {
			continue
		}
		top.populated[field.Wire] = true
		if err := e.build.SetField(h, field, rf.value); err != nil {
			return err
		}
		e.changed = true
	}
	return nil
}

func (e *Engine) onText(ev scanner.Event) {
	top := e.top()
	if top.discard {
		return
	}
	if top.resolved != nil && (top.resolved.Kind == schema.KindScalar || top.resolved.Kind == schema.KindAny) {
		top.text.WriteString(ev.Text)
		if ev.Kind == scanner.CData {
			top.sawCData = true
		} else {
			top.sawPlainText = true
		}
	}
	// Text arriving directly inside a Record/Container/pendingUnion frame
	// is formatting whitespace between child tags; it carries no field
	// identity, so it's dropped rather than reported as an error.
}

func (e *Engine) onEnd(ev scanner.Event) error {
	if len(e.stack) == 1 {
		// The root has no closing tag of its own; a stray End at the top
		// level means a field closed without ever being opened here, or
		// the stream is simply malformed. Either way there's nothing to
		// pop.
		e.diagnostics = append(e.diagnostics, diag.UnexpectedTag(ev.Span, e.path(), ev.Name))
		return nil
	}

	closing := e.top()
	e.stack = e.stack[:len(e.stack)-1]
	parent := e.top()

	if closing.discard {
		return nil
	}

	value, d, err, assignable := e.finalizeFrame(closing)
	if d != nil {
		e.diagnostics = append(e.diagnostics, d)
	}
	if err != nil {
		return err
	}
	if closing.resolved == nil && !closing.pendingUnion {
		return nil
	}

	if parent.pendingUnion && parent.resolved == nil {
		parent.markSeen(closing.tagName, value, assignable)
		candidateNames := append([]string{}, parent.rawOrder...)
		variant, vd := resolveUnion(e.provider, parent.unionTarget, "", "", candidateNames, e.options.Selector)
		if vd != nil {
			e.diagnostics = append(e.diagnostics, vd)
		}
		if variant != nil {
			return e.commitUnion(parent, variant)
		}
		return nil
	}

	if !assignable {
		return nil
	}

	switch {
	case closing.hasParentField:
		// The sticky-field invariant is enforced here, at the moment a
		// value is actually produced, not when the child tag opened: a
		// first occurrence that fails coercion leaves the field unset
		// (assignable is false above) and a later valid occurrence of
		// the same field is still free to claim it.
		parent.populated[closing.parentField.Wire] = true
		if err := e.build.SetField(parent.handle, closing.parentField, value); err != nil {
			return err
		}
		e.changed = true
		return nil
	case closing.isContainerItem:
		if err := e.build.Append(parent.handle, value); err != nil {
			return err
		}
		e.changed = true
		return nil
	case closing.isTupleItem:
		if err := e.build.TupleSet(parent.handle, closing.tupleIndex, value); err != nil {
			return err
		}
		e.changed = true
		return nil
	case closing.isMapEntry:
		if err := e.build.Insert(parent.handle, closing.mapKey, value); err != nil {
			return err
		}
		e.changed = true
		return nil
	default:
		return nil
	}
}

// finalizeFrame converts f's accumulated state into its final value.
// assignable is false when a scalar failed coercion: the caller must
// leave the field/slot unset rather than write the reported zero value,
// so the sticky-field invariant only locks in on an actual successful
// write.
func (e *Engine) finalizeFrame(f *frame) (value any, d *diag.Diagnostic, err error, assignable bool) {
	if f.pendingUnion && f.resolved == nil {
		// Never resolved: no variant matched even the fields actually
		// seen. In strict mode this should have failed earlier at the
		// point of ambiguity; here we just drop the value.
		return nil, diag.AmbiguousVariant(diag.Span{}, e.path(), "<unresolved>"), nil, false
	}
	switch f.resolved.Kind {
	case schema.KindRecord, schema.KindSequence, schema.KindSet, schema.KindMapping, schema.KindTuple:
		v, err := e.build.Finalize(f.handle)
		return v, nil, err, err == nil
	case schema.KindScalar:
		raw := f.text.String()
		if f.sawPlainText || !f.sawCData {
			raw = strings.TrimSpace(raw)
		}
		v, d, ok := coerceScalar(f.resolved.Scalar, raw, diag.Span{}, e.path())
		return v, d, nil, ok
	default:
		return f.text.String(), nil, nil, true
	}
}

func (e *Engine) push(f *frame) { e.stack = append(e.stack, f) }

func discardFrame(tagName string) *frame {
	return &frame{tagName: tagName, discard: true}
}

func (e *Engine) reportUnexpected(ev scanner.Event) {
	e.diagnostics = append(e.diagnostics, diag.UnexpectedTag(ev.Span, e.path(), ev.Name))
}

func (e *Engine) path() string { return dottedPath(e.stack) }

// Diagnostics returns every recoverable diagnostic recorded so far, in the
// order they occurred.
func (e *Engine) Diagnostics() []*diag.Diagnostic { return e.diagnostics }

// Partial returns a live view of the value under construction. For the
// default ReflectBuilder this is the exact pointer passed to New: its
// fields fill in as the stream progresses, so repeated reads through it
// observe the most recent state without ever seeing a torn or
// wrong-shaped value.
func (e *Engine) Partial() any { return e.target }

// IsComplete reports whether Finalize has been called successfully.
func (e *Engine) IsComplete() bool { return e.complete }

// Finalize signals end of stream. It fails with ErrIncompleteInput if any
// non-root frame is still open (an element was started but never closed).
func (e *Engine) Finalize() (any, error) {
	if e.fatal != nil {
		return nil, e.fatal
	}
	if len(e.stack) != 1 {
		return nil, diag.ErrIncompleteInput
	}
	root := e.stack[0]
	value, d, err, _ := e.finalizeFrame(root)
	if d != nil {
		e.diagnostics = append(e.diagnostics, d)
	}
	if err != nil {
		return nil, err
	}
	e.complete = true
	return value, nil
}
