// internal/tools/registry.go
package tools

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/interaction"
	"github.com/xkilldash9x/webpilot/internal/locator"
	"github.com/xkilldash9x/webpilot/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -- Collaborators --

// Interactor performs page interactions. Satisfied by *interaction.Executor.
type Interactor interface {
	Navigate(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	Click(ctx context.Context, selector string) interaction.InteractionOutcome
	TypeText(ctx context.Context, selector, text string) error
	PressKey(ctx context.Context, key string) error
	Scroll(ctx context.Context, direction interaction.ScrollDirection, selector string) (string, error)
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	ElementText(ctx context.Context, selector string) (string, error)
	RememberMatch(selector, matchedText string)
}

// ElementFinder resolves a description to a selector. Satisfied by *locator.Locator.
type ElementFinder interface {
	Find(ctx context.Context, description string) (locator.ElementCandidate, error)
}

// ContentExtractor summarizes the page. Satisfied by *extraction.Extractor.
type ContentExtractor interface {
	Extract(ctx context.Context, scrollToLoad bool) (string, error)
}

// Screenshotter captures the viewport as PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

var (
	_ Interactor    = (*interaction.Executor)(nil)
	_ ElementFinder = (*locator.Locator)(nil)
	_ Screenshotter = (schemas.Page)(nil)
)

// Dependencies are the collaborators the tools act through.
type Dependencies struct {
	Interactor Interactor
	Finder     ElementFinder
	Extractor  ContentExtractor
	Screens    Screenshotter
	Questions  schemas.QuestionProvider
	Config     config.Interface
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// -- Registry --

type entry struct {
	spec  schemas.ToolSpec
	input reflect.Type
	run   func(ctx context.Context, raw []byte) (Outcome, error)
}

// Registry maps tool names to typed handlers and advertises their specs.
type Registry struct {
	entries map[ToolName]*entry
	specs   []schemas.ToolSpec
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRegistry wires every tool and checks the handler table against the
// advertised catalogue. A mismatch is a programming error and is returned.
func NewRegistry(deps Dependencies) (*Registry, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries: make(map[ToolName]*entry),
		specs:   Catalog(),
		metrics: deps.Metrics,
		logger:  logger.Named("tools"),
	}

	ts := &toolset{deps: deps}
	register(r, ToolGotoURL, ts.gotoURL)
	register(r, ToolGetPageContent, ts.getPageContent)
	register(r, ToolTakeScreenshot, ts.takeScreenshot)
	register(r, ToolFindElement, ts.findElement)
	register(r, ToolClick, ts.click)
	register(r, ToolTypeText, ts.typeText)
	register(r, ToolPressKey, ts.pressKey)
	register(r, ToolScroll, ts.scroll)
	register(r, ToolWaitForElement, ts.waitForElement)
	register(r, ToolGetElementText, ts.getElementText)
	register(r, ToolGoBack, ts.goBack)
	register(r, ToolAskHuman, ts.askHuman)

	if err := r.bindSpecs(); err != nil {
		return nil, err
	}
	return r, nil
}

// register adds a typed handler. Input decoding happens here so handlers
// only ever see a well-formed T.
func register[T any](r *Registry, name ToolName, fn func(ctx context.Context, in T) (Outcome, error)) {
	r.entries[name] = &entry{
		input: reflect.TypeOf((*T)(nil)).Elem(),
		run: func(ctx context.Context, raw []byte) (Outcome, error) {
			var in T
			if err := json.Unmarshal(raw, &in); err != nil {
				return Outcome{}, newToolError(KindInvalidInput, name,
					fmt.Sprintf("Error: invalid input for %s: %v", name, err), err)
			}
			return fn(ctx, in)
		},
	}
}

// bindSpecs attaches each spec to its handler and verifies both directions:
// every advertised tool has a handler, every handler is advertised, and the
// declared parameters match the input struct's JSON fields exactly.
func (r *Registry) bindSpecs() error {
	var errs []error
	advertised := make(map[ToolName]struct{}, len(r.specs))

	for _, spec := range r.specs {
		name := ToolName(spec.Name)
		advertised[name] = struct{}{}
		e, ok := r.entries[name]
		if !ok {
			errs = append(errs, fmt.Errorf("tool %q is advertised but has no handler", name))
			continue
		}
		e.spec = spec

		fields := jsonFields(e.input)
		for _, p := range spec.Parameters {
			if _, ok := fields[p.Name]; !ok {
				errs = append(errs, fmt.Errorf("tool %q declares parameter %q missing from %s", name, p.Name, e.input.Name()))
			}
			delete(fields, p.Name)
		}
		for f := range fields {
			errs = append(errs, fmt.Errorf("tool %q input field %q is not advertised", name, f))
		}
	}
	for name := range r.entries {
		if _, ok := advertised[name]; !ok {
			errs = append(errs, fmt.Errorf("tool %q has a handler but is not advertised", name))
		}
	}
	return errors.Join(errs...)
}

// jsonFields lists the JSON names of a struct's exported fields.
func jsonFields(t reflect.Type) map[string]struct{} {
	out := make(map[string]struct{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			if n := strings.Split(tag, ",")[0]; n != "" {
				name = n
			}
		}
		out[name] = struct{}{}
	}
	return out
}

// Specs returns the catalogue advertised to the model.
func (r *Registry) Specs() []schemas.ToolSpec {
	return r.specs
}

// Dispatch runs one tool call. It never returns an error and never panics:
// every failure comes back as an error outcome for the model to read.
func (r *Registry) Dispatch(ctx context.Context, call schemas.ToolUse) (out Outcome) {
	name := ToolName(call.Name)
	logger := r.logger.With(zap.String("tool", call.Name), zap.String("tool_use_id", call.ID))
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Recovered from panic in tool.", zap.Any("panic_reason", rec), zap.Stack("stack"))
			out = ErrorOutcome(newToolError(KindExecution, name,
				fmt.Sprintf("Error executing %s: internal panic: %v", name, rec), nil))
		}
		label := call.Name
		if _, known := r.entries[name]; !known {
			label = "unknown"
		}
		r.metrics.ObserveToolCall(label, out.Kind())
		logger.Debug("Tool call finished.", zap.String("outcome", out.Kind()), zap.Duration("elapsed", time.Since(start)))
	}()

	e, ok := r.entries[name]
	if !ok {
		return ErrorOutcome(newToolError(KindUnknownTool, name, fmt.Sprintf("Error: Unknown tool '%s'", call.Name), nil))
	}

	raw := []byte(call.Input)
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	if err := checkParams(e.spec, raw); err != nil {
		return ErrorOutcome(newToolError(KindInvalidInput, name,
			fmt.Sprintf("Error: invalid input for %s: %v", name, err), err))
	}

	result, err := e.run(ctx, raw)
	if err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			te = newToolError(classify(err), name, fmt.Sprintf("Error executing %s: %v", name, err), err)
		}
		logger.Info("Tool call failed.", zap.String("kind", string(te.Kind)), zap.Error(err))
		return ErrorOutcome(te)
	}
	return result
}

// checkParams enforces required parameters and enum membership, which the
// struct decoder cannot see.
func checkParams(spec schemas.ToolSpec, raw []byte) error {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("input must be a JSON object: %w", err)
	}
	for _, p := range spec.Parameters {
		v, present := fields[p.Name]
		if !present || string(v) == "null" {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		if len(p.Enum) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("parameter %q must be a string", p.Name)
		}
		if !slices.Contains(p.Enum, s) {
			return fmt.Errorf("parameter %q must be one of %s, got %q", p.Name, strings.Join(p.Enum, ", "), s)
		}
	}
	return nil
}
