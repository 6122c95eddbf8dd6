package service

import (
	"context"
	"strings"
	"time"
)

const (
	typeaheadLimit    = 10
	DefaultSearchWait = 200 * time.Millisecond
)

// Typeahead filtra una lista por nombre.
type Typeahead[T any] struct {
	Name func(T) string
}

func NewTypeahead[T any](name func(T) string) Typeahead[T] {
	return Typeahead[T]{Name: name}
}

// Search devuelve hasta 10 coincidencias por contención sin distinguir
// mayúsculas. Un término vacío no devuelve nada.
func (t Typeahead[T]) Search(items []T, term string) []T {
	if term == "" {
		return nil
	}
	needle := strings.ToLower(term)
	var out []T
	for _, it := range items {
		if strings.Contains(strings.ToLower(t.Name(it)), needle) {
			out = append(out, it)
			if len(out) == typeaheadLimit {
				break
			}
		}
	}
	return out
}

// Debounce emite cada término después de wait sin entradas nuevas y descarta
// los que repiten el último emitido. El canal devuelto se cierra cuando terms
// se cierra o ctx termina; un término pendiente al cerrar terms se emite.
// wait no positivo usa DefaultSearchWait.
func Debounce(ctx context.Context, terms <-chan string, wait time.Duration) <-chan string {
	if wait <= 0 {
		wait = DefaultSearchWait
	}
	out := make(chan string)
	go func() {
		defer close(out)
		var (
			pending  string
			armed    bool
			last     string
			emitted  bool
			timer    = time.NewTimer(wait)
			deadline <-chan time.Time
		)
		timer.Stop()
		defer timer.Stop()

		emit := func() bool {
			armed = false
			deadline = nil
			if emitted && pending == last {
				return true
			}
			select {
			case out <- pending:
				last, emitted = pending, true
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case term, ok := <-terms:
				if !ok {
					if armed {
						emit()
					}
					return
				}
				pending, armed = term, true
				timer.Reset(wait)
				deadline = timer.C
			case <-deadline:
				if !emit() {
					return
				}
			}
		}
	}()
	return out
}
