// Package observe implementa un contenedor observable con reemisión del último
// valor a cada suscriptor nuevo.
package observe

import (
	"sync"
	"sync/atomic"
)

// Subject guarda el último valor publicado y lo entrega a cada suscriptor
// nuevo, seguido de todas las publicaciones posteriores.
//
// Las entregas pasan por una cola FIFO: cada suscriptor ve los valores en el
// orden en que fueron publicados. Un callback puede publicar en el mismo
// Subject sin bloquearse; la entrega queda encolada detrás de la actual.
// Si otra goroutine ya está entregando, Publish encola y retorna.
// Stage y Flush separan ambos pasos para dueños que publican bajo su propio lock.
type Subject[T any] struct {
	mu       sync.Mutex
	value    T
	subs     []*subscriber[T]
	queue    []delivery[T]
	draining bool
}

type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

type delivery[T any] struct {
	value   T
	targets []*subscriber[T]
}

// NewSubject crea un Subject con el valor inicial dado.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial}
}

// Value devuelve el último valor publicado.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish reemplaza el valor actual y lo entrega a los suscriptores vigentes.
func (s *Subject[T]) Publish(v T) {
	s.Stage(v)
	s.Flush()
}

// Stage reemplaza el valor actual y encola su entrega sin ejecutarla. Permite
// publicar bajo el lock del dueño y entregar con Flush después de soltarlo;
// el orden de entrega es el orden de Stage.
func (s *Subject[T]) Stage(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	targets := make([]*subscriber[T], len(s.subs))
	copy(targets, s.subs)
	s.queue = append(s.queue, delivery[T]{value: v, targets: targets})
}

// Flush entrega lo encolado. Si otra goroutine ya está entregando, retorna
// y esa goroutine entrega también lo nuevo.
func (s *Subject[T]) Flush() {
	s.mu.Lock()
	if s.draining || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()
	s.drain()
}

// Subscribe registra fn. fn recibe el valor actual y luego cada cambio.
//
// El valor actual llega antes de que Subscribe retorne, salvo que ya haya una
// entrega en curso: desde un callback, o con otra goroutine entregando. En ese
// caso queda encolado detrás de lo pendiente y lo entrega quien esté drenando.
// La función devuelta cancela la suscripción y es idempotente.
func (s *Subject[T]) Subscribe(fn func(T)) (cancel func()) {
	sub := &subscriber[T]{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.queue = append(s.queue, delivery[T]{value: s.value, targets: []*subscriber[T]{sub}})
	s.mu.Unlock()
	s.Flush()

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
	}
}

// Subscribers devuelve la cantidad de suscriptores activos.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) drain() {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.draining = false
			s.queue = nil
			s.mu.Unlock()
			panic(r)
		}
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		d := s.queue[0]
		s.queue[0] = delivery[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, sub := range d.targets {
			if sub.active.Load() {
				sub.fn(d.value)
			}
		}
	}
}
