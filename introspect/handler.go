// Package introspect serves the type registry of a Context over HTTP so
// that editors and scripting bridges can list types, read their attribute
// schemas and create objects by name.
//
// Routes:
//
//	GET  /types                   all known types
//	GET  /types/{name}            one type with attributes and properties
//	GET  /factories               registered factories by category
//	POST /types/{name}/instances  create an object, optionally setting attributes
package introspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/objectcore"
	"github.com/GoCodeAlone/objectcore/variant"
)

// Handler serves one Context.
type Handler struct {
	ctx    *objectcore.Context
	router chi.Router
	// create runs object creation. The default runs it inline; servers
	// whose objects are owned by another goroutine replace it.
	create func(func())
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExecutor runs object creation through exec, which must call fn
// and return after it has completed. Use it to hop onto the goroutine that
// owns the Context's objects.
func WithExecutor(exec func(fn func())) HandlerOption {
	return func(h *Handler) {
		if exec != nil {
			h.create = exec
		}
	}
}

// NewHandler returns a handler for ctx.
func NewHandler(ctx *objectcore.Context, opts ...HandlerOption) *Handler {
	h := &Handler{ctx: ctx, create: func(fn func()) { fn() }}
	for _, opt := range opts {
		opt(h)
	}
	r := chi.NewRouter()
	r.Get("/types", h.listTypes)
	r.Get("/types/{name}", h.getType)
	r.Post("/types/{name}/instances", h.createInstance)
	r.Get("/factories", h.listFactories)
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// TypeSummary is the list entry of a type.
type TypeSummary struct {
	Name       string   `json:"name"`
	ID         string   `json:"id"`
	Bases      []string `json:"bases,omitempty"`
	Closed     bool     `json:"closed"`
	Attributes int      `json:"attributes"`
}

// TypeDetail describes one type fully.
type TypeDetail struct {
	TypeSummary
	Interfaces    []string        `json:"interfaces,omitempty"`
	Properties    []PropertyView  `json:"properties,omitempty"`
	AttributeList []AttributeView `json:"attributeList"`
	Factory       *FactoryView    `json:"factory,omitempty"`
}

// AttributeView describes one attribute.
type AttributeView struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Mode       uint32         `json:"mode"`
	Default    string         `json:"default"`
	Offset     *uintptr       `json:"offset,omitempty"`
	Properties []PropertyView `json:"properties,omitempty"`
}

// PropertyView describes one property.
type PropertyView struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

// FactoryView describes one factory.
type FactoryView struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
}

// InstanceView is the response to an object creation.
type InstanceView struct {
	Type       string            `json:"type"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

type errorBody struct {
	Error string `json:"error"`
}

func summarize(ti *objectcore.TypeInfo) TypeSummary {
	s := TypeSummary{
		Name:       ti.Name(),
		ID:         fmt.Sprintf("%016x", uint64(ti.ID())),
		Closed:     ti.IsClosed(),
		Attributes: ti.AttributeCount(),
	}
	for _, b := range ti.Bases() {
		s.Bases = append(s.Bases, b.Name())
	}
	return s
}

func viewProperty(p objectcore.Property) PropertyView {
	v := PropertyView{Kind: string(p.PropertyKind())}
	switch p := p.(type) {
	case *objectcore.StringProperty:
		v.Value = p.Value()
	case *objectcore.ValueProperty:
		v.Value = p.Value().String()
	case *objectcore.RangeProperty:
		v.Value = []float64{p.Min, p.Max}
	}
	return v
}

func viewProperties(props []objectcore.Property) []PropertyView {
	var out []PropertyView
	for _, p := range props {
		out = append(out, viewProperty(p))
	}
	return out
}

func (h *Handler) listTypes(w http.ResponseWriter, _ *http.Request) {
	types := h.ctx.Types()
	out := make([]TypeSummary, 0, len(types))
	for _, ti := range types {
		out = append(out, summarize(ti))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getType(w http.ResponseWriter, r *http.Request) {
	ti := h.ctx.TypeByName(chi.URLParam(r, "name"))
	if ti == nil {
		writeError(w, http.StatusNotFound, objectcore.ErrTypeNotFound)
		return
	}
	d := TypeDetail{
		TypeSummary:   summarize(ti),
		Properties:    viewProperties(ti.Properties()),
		AttributeList: make([]AttributeView, 0, ti.AttributeCount()),
	}
	for _, i := range ti.Interfaces() {
		d.Interfaces = append(d.Interfaces, i.Name())
	}
	for _, a := range ti.Attributes() {
		av := AttributeView{
			Name:       a.Name(),
			Kind:       a.Kind().String(),
			Mode:       uint32(a.Mode()),
			Default:    display(a.DefaultValue()),
			Properties: viewProperties(ti.AttributeProperties(a.Name())),
		}
		if off, ok := a.Offset(); ok {
			av.Offset = &off
		}
		d.AttributeList = append(d.AttributeList, av)
	}
	if f := h.ctx.Factory(ti.ID()); f != nil {
		d.Factory = &FactoryView{Type: f.TypeName(), Category: f.Category()}
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) listFactories(w http.ResponseWriter, _ *http.Request) {
	factories := h.ctx.Factories()
	out := make([]FactoryView, 0, len(factories))
	for _, f := range factories {
		out = append(out, FactoryView{Type: f.TypeName(), Category: f.Category()})
	}
	writeJSON(w, http.StatusOK, out)
}

// createInstance creates an object and applies the attribute values in the
// optional JSON body, given as strings keyed by attribute name.
func (h *Handler) createInstance(w http.ResponseWriter, r *http.Request) {
	ti := h.ctx.TypeByName(chi.URLParam(r, "name"))
	if ti == nil {
		writeError(w, http.StatusNotFound, objectcore.ErrTypeNotFound)
		return
	}
	var values map[string]string
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
	}

	var (
		view   InstanceView
		status = http.StatusCreated
		err    error
	)
	h.create(func() {
		var obj objectcore.Object
		obj, err = h.ctx.CreateObject(ti.ID())
		if err != nil {
			status = http.StatusNotFound
			return
		}
		base := objectcore.BaseOf(obj)
		for name, raw := range values {
			attr := ti.Attribute(name)
			if attr == nil {
				status, err = http.StatusBadRequest, fmt.Errorf("%w: %s", objectcore.ErrAttributeNotFound, name)
				return
			}
			var v variant.Variant
			if v, err = variant.FromString(attr.Kind(), raw); err != nil {
				status = http.StatusBadRequest
				return
			}
			if err = base.SetAttribute(name, v); err != nil {
				status = http.StatusBadRequest
				return
			}
		}
		view = InstanceView{Type: ti.Name(), Category: base.Category(), Attributes: make(map[string]string)}
		for _, a := range ti.Attributes() {
			v, getErr := a.Get(obj)
			if getErr != nil {
				continue
			}
			view.Attributes[a.Name()] = display(v)
		}
	})
	if err != nil {
		if errors.Is(err, objectcore.ErrFactoryNotRegistered) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, status, view)
}

// display renders a value without its kind tag.
func display(v variant.Variant) string {
	if v.IsEmpty() {
		return ""
	}
	return fmt.Sprint(v.Interface())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
