// Package sandbox runs one block's code in an isolated ECMAScript runtime,
// capturing a single string output or a normalized error. Execution trusts
// the document author; this is isolation against cross-block interference,
// not a security boundary.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/org-press/org-press-sub001/internal/block"
	"github.com/org-press/org-press-sub001/internal/logfields"
)

// allowedLanguages is the fixed execution allow-list.
var allowedLanguages = map[string]struct{}{
	"js":         {},
	"javascript": {},
	"ts":         {},
	"typescript": {},
}

// Page is one entry of the site's page set as seen by executed code.
type Page struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// ContentHelpers are the externally supplied functions exposed inside
// server-executed block code. Nil fields get inert defaults.
type ContentHelpers struct {
	GetPages            func() []Page
	GetPagesInDirectory func(dir string) []Page
	RenderPageList      func(pages []Page) string
	IsDevelopment       func() bool
	RequireModule       func(specifier string) (any, error)
}

func (h ContentHelpers) withDefaults() ContentHelpers {
	if h.GetPages == nil {
		h.GetPages = func() []Page { return nil }
	}
	if h.GetPagesInDirectory == nil {
		h.GetPagesInDirectory = func(string) []Page { return nil }
	}
	if h.RenderPageList == nil {
		h.RenderPageList = defaultRenderPageList
	}
	if h.IsDevelopment == nil {
		h.IsDevelopment = func() bool { return false }
	}
	if h.RequireModule == nil {
		h.RequireModule = func(spec string) (any, error) {
			return nil, fmt.Errorf("module %q is not available in this context", spec)
		}
	}
	return h
}

func defaultRenderPageList(pages []Page) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, p := range pages {
		b.WriteString(`<li><a href="` + p.Path + `">` + p.Title + `</a></li>`)
	}
	b.WriteString("</ul>")
	return b.String()
}

// Sandbox executes blocks. It is safe for concurrent use: every invocation
// gets its own runtime, a unique compiled unit, and helper bindings
// namespaced by the invocation identifier, removed on every exit path.
type Sandbox struct {
	helpers    ContentHelpers
	clientSide bool
	logger     *slog.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sandbox) { s.logger = l }
}

// WithClientGuard marks the sandbox as running in a client/browser-like
// context, where execution must refuse to run.
func WithClientGuard(client bool) Option {
	return func(s *Sandbox) { s.clientSide = client }
}

// New creates a sandbox with the given injected content helpers.
func New(helpers ContentHelpers, opts ...Option) *Sandbox {
	s := &Sandbox{
		helpers: helpers.withDefaults(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Supported reports whether a language is on the execution allow-list.
func Supported(language string) bool {
	_, ok := allowedLanguages[strings.ToLower(language)]
	return ok
}

// Execute runs one block and never returns an error to the caller; failures
// are normalized into the result. The elapsed duration is recorded for
// failed attempts too.
func (s *Sandbox) Execute(ctx context.Context, code, language string) block.ExecutionResult {
	start := time.Now()
	finish := func(output string, execErr *block.ExecutionError) block.ExecutionResult {
		return block.ExecutionResult{
			Output:          output,
			Error:           execErr,
			ExecutionTimeMS: float64(time.Since(start).Nanoseconds()) / 1e6,
		}
	}

	if s.clientSide {
		return finish("", &block.ExecutionError{
			Kind:    block.ErrorKindEnvironment,
			Message: "block execution is unavailable in a client context; server-side builds only",
		})
	}
	if !Supported(language) {
		return finish("", &block.ExecutionError{
			Kind:    block.ErrorKindUnsupportedLanguage,
			Message: fmt.Sprintf("language %q is not executable", language),
		})
	}

	native, err := transpile(code, language)
	if err != nil {
		return finish("", &block.ExecutionError{
			Kind:    block.ErrorKindExecution,
			Message: err.Error(),
		})
	}

	body := prepareBody(native)

	invocationID := uuid.NewString()
	unitName := "block-" + invocationID + ".js"
	globalName := "__orgpress_" + strings.ReplaceAll(invocationID, "-", "")

	src := buildUnit(globalName, body)
	prog, err := goja.Compile(unitName, src, false)
	if err != nil {
		return finish("", &block.ExecutionError{
			Kind:    block.ErrorKindExecution,
			Message: fmt.Sprintf("compile: %v", err),
		})
	}

	vm := goja.New()
	// Block code sees the json-tag names (page.title, page.path), not the
	// exported Go field names.
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := s.installHelpers(vm, globalName); err != nil {
		return finish("", &block.ExecutionError{
			Kind:    block.ErrorKindEnvironment,
			Message: fmt.Sprintf("install helpers: %v", err),
		})
	}
	// The namespaced binding must not outlive the invocation, whatever the
	// exit path.
	defer func() {
		_ = vm.GlobalObject().Delete(globalName)
	}()

	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchdogDone:
		}
	}()

	value, runErr := runProgram(vm, prog)
	if runErr != nil {
		s.logger.Debug("block execution failed", logfields.Language(language), logfields.Error(runErr))
		return finish("", normalizeRunError(runErr))
	}
	return finish(normalizeOutput(value), nil)
}

// buildUnit wraps the block body so the injected helpers are visible only as
// parameters of this invocation's function scope, fed from the namespaced
// global.
func buildUnit(globalName, body string) string {
	params := "require, getPages, getPagesInDirectory, renderPageList, isDevelopment"
	args := globalName + ".requireModule, " +
		globalName + ".getPages, " +
		globalName + ".getPagesInDirectory, " +
		globalName + ".renderPageList, " +
		globalName + ".isDevelopment"
	return ";(function (" + params + ") {\n\"use strict\";\n" + body + "\n})(" + args + ");"
}

func (s *Sandbox) installHelpers(vm *goja.Runtime, globalName string) error {
	obj := vm.NewObject()
	if err := obj.Set("getPages", s.helpers.GetPages); err != nil {
		return err
	}
	if err := obj.Set("getPagesInDirectory", s.helpers.GetPagesInDirectory); err != nil {
		return err
	}
	if err := obj.Set("renderPageList", s.helpers.RenderPageList); err != nil {
		return err
	}
	if err := obj.Set("isDevelopment", s.helpers.IsDevelopment); err != nil {
		return err
	}
	requireModule := func(spec string) any {
		v, err := s.helpers.RequireModule(spec)
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		return v
	}
	if err := obj.Set("requireModule", requireModule); err != nil {
		return err
	}
	return vm.Set(globalName, obj)
}

func runProgram(vm *goja.Runtime, prog *goja.Program) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("runtime panic: %v", r)
		}
	}()
	return vm.RunProgram(prog)
}

func normalizeRunError(err error) *block.ExecutionError {
	if ex, ok := err.(*goja.Exception); ok {
		return &block.ExecutionError{
			Kind:    block.ErrorKindExecution,
			Message: ex.Value().String(),
			Stack:   ex.String(),
		}
	}
	return &block.ExecutionError{
		Kind:    block.ErrorKindExecution,
		Message: err.Error(),
	}
}
