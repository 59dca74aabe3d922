package walker

import (
	"context"

	"github.com/gofhir/conformance/pool"
	"github.com/gofhir/conformance/schema"
)

// VisitorFunc is called for each visit during a walk. Returning an
// error stops the walk with that error.
type VisitorFunc func(wctx *WalkContext) error

// Walker traverses a typed record tree under schema guidance. A Walker
// reuses its contexts and path builders across visits, so it is not
// safe for concurrent use; create one per validation.
type Walker struct {
	declared *pool.PathBuilder
	instance *pool.PathBuilder

	// contexts is a stack of reusable visit contexts.
	contexts []*WalkContext
	ctxIdx   int
}

// New creates a Walker.
func New() *Walker {
	return &Walker{
		contexts: make([]*WalkContext, 0, 32),
	}
}

// Walk traverses node under the given type definition, calling visitor
// for the node itself, for each present field value, and recursively
// for each complex field value. Absent optional fields are skipped
// entirely. The walk order follows field declaration order, so visits
// are deterministic for a fixed schema.
func Walk(ctx context.Context, node any, typ *schema.Type, visitor VisitorFunc) error {
	return New().Walk(ctx, node, typ, visitor)
}

// Walk traverses the tree rooted at node.
func (w *Walker) Walk(ctx context.Context, node any, typ *schema.Type, visitor VisitorFunc) error {
	if node == nil || typ == nil || visitor == nil {
		return nil
	}

	w.declared = pool.AcquirePathBuilder()
	w.instance = pool.AcquirePathBuilder()
	defer func() {
		w.declared.Release()
		w.instance.Release()
		w.declared = nil
		w.instance = nil
		w.ctxIdx = 0
	}()

	w.declared.PushSegment(typ.Name)
	w.instance.PushSegment(typ.Name)

	return w.walkNode(ctx, node, typ, visitor, 0)
}

// walkNode visits a node and then each of its present field values.
func (w *Walker) walkNode(ctx context.Context, node any, typ *schema.Type, visitor VisitorFunc, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wctx := w.acquireContext()
	wctx.Node = node
	wctx.Type = typ
	wctx.DeclaredPath = w.declared.String()
	wctx.InstancePath = w.instance.String()
	wctx.Depth = depth

	err := visitor(wctx)
	w.releaseContext()
	if err != nil {
		return err
	}

	for i := range typ.Fields {
		if err := w.walkField(ctx, node, typ, &typ.Fields[i], visitor, depth); err != nil {
			return err
		}
	}
	return nil
}

// walkField visits each present value of a field and recurses into
// complex values.
func (w *Walker) walkField(ctx context.Context, node any, typ *schema.Type, field *schema.Field, visitor VisitorFunc, depth int) error {
	if field.Values == nil {
		return nil
	}
	values := field.Values(node)
	if len(values) == 0 {
		return nil
	}

	declaredMark := w.declared.Mark()
	instanceMark := w.instance.Mark()
	w.declared.PushSegment(field.Name)
	defer w.declared.Truncate(declaredMark)

	for i, value := range values {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.instance.Truncate(instanceMark)
		w.instance.PushSegment(field.Name)
		index := -1
		if field.Repeating {
			index = i
			w.instance.PushIndex(i)
		}

		wctx := w.acquireContext()
		wctx.Node = node
		wctx.Type = typ
		wctx.Field = field
		wctx.FieldValue = value
		wctx.DeclaredPath = w.declared.String()
		wctx.InstancePath = w.instance.String()
		wctx.ArrayIndex = index
		wctx.Depth = depth + 1

		err := visitor(wctx)
		w.releaseContext()
		if err != nil {
			return err
		}

		// Leaf values end here; complex values descend with their own
		// type definition. Elem dispatches on the value so choice
		// fields can pick the variant's definition.
		if field.Elem == nil {
			continue
		}
		elem := field.Elem(value)
		if elem == nil {
			continue
		}
		if err := w.walkNode(ctx, value, elem, visitor, depth+1); err != nil {
			return err
		}
	}

	w.instance.Truncate(instanceMark)
	return nil
}

// acquireContext gets a context from the internal stack.
func (w *Walker) acquireContext() *WalkContext {
	if w.ctxIdx < len(w.contexts) {
		c := w.contexts[w.ctxIdx]
		c.Reset()
		w.ctxIdx++
		return c
	}
	c := &WalkContext{ArrayIndex: -1}
	w.contexts = append(w.contexts, c)
	w.ctxIdx++
	return c
}

// releaseContext returns the most recently acquired context.
func (w *Walker) releaseContext() {
	if w.ctxIdx > 0 {
		w.ctxIdx--
	}
}
