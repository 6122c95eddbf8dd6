package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"smush/internal/apiclient"
	"smush/internal/observe"
)

const loadFailedMessage = "Unable to get data."

// CacheSpec describe cómo una instancia de EntityCache habla con la API.
type CacheSpec[T any] struct {
	Name     string
	BasePath string
	// ListKey es la clave de data en la respuesta de getall (ej. "matches").
	ListKey string
	// ItemKey es la clave de data en create/update (ej. "match").
	ItemKey string
	// IDField es el nombre JSON del id (ej. "matchId").
	IDField string
	ID      func(T) int64
	// WithID adopta la entidad enviada con el id asignado cuando el servidor
	// sólo devuelve data[IDField].
	WithID func(T, int64) T
	Less   func(a, b T) bool
	Clone  func(T) T
	Retry  apiclient.RetryPolicy
}

// EntityCache mantiene la lista autoritativa de un tipo de entidad.
//
// Es el único escritor de su lista. Cada mutación se aplica y se encola para
// publicar bajo el mismo lock, así que las publicaciones de una instancia
// quedan totalmente ordenadas; los suscriptores reciben después de soltarlo.
// Las llamadas HTTP corren fuera del lock y un fallo nunca modifica la lista.
type EntityCache[T any] struct {
	spec     CacheSpec[T]
	api      API
	logger   *zap.Logger
	notifier Notifier

	mu     sync.Mutex
	list   []T
	loaded bool
	gen    uint64
	items  *observe.Subject[[]T]
}

func NewEntityCache[T any](logger *zap.Logger, api API, notifier Notifier, spec CacheSpec[T]) *EntityCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &EntityCache[T]{
		spec:     spec,
		api:      api,
		logger:   logger.With(zap.String("cache", spec.Name)),
		notifier: notifier,
		items:    observe.NewSubject[[]T](nil),
	}
}

// Subscribe entrega la lista actual (nil si no se cargó) y cada cambio.
// Los slices recibidos son copias y deben tratarse como sólo lectura. Los
// callbacks corren sin el lock del cache y pueden leerlo o escribirlo.
func (c *EntityCache[T]) Subscribe(fn func([]T)) (cancel func()) {
	return c.items.Subscribe(fn)
}

// Items devuelve una copia de la lista, o nil si aún no se cargó.
func (c *EntityCache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil
	}
	return c.copyLocked()
}

func (c *EntityCache[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Find busca por id.
func (c *EntityCache[T]) Find(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.cloneItem(c.list[i]), true
	}
	var zero T
	return zero, false
}

// LoadAll reemplaza la lista completa. Ante un fallo se conserva el último
// valor conocido. Si Reset corre mientras el pedido está en vuelo, el
// resultado se descarta y devuelve ErrLoadSuperseded.
func (c *EntityCache[T]) LoadAll(ctx context.Context) error {
	if c.api == nil {
		return ErrNotConfigured
	}
	gen := c.generation()
	path := c.spec.BasePath + "/getall"
	var data map[string]json.RawMessage
	var err error
	if c.spec.Retry.Attempts > 1 {
		err = c.api.GetWithRetry(ctx, path, &data, c.spec.Retry)
	} else {
		err = c.api.Get(ctx, path, &data)
	}
	if err != nil {
		if ctx.Err() != nil || c.generation() != gen {
			c.logger.Debug("load abandoned", zap.Error(err))
			return fmt.Errorf("load %s: %w", c.spec.Name, err)
		}
		c.logger.Warn("load failed", zap.Error(err))
		c.notifier.Toast(ToastDanger, loadFailedMessage)
		return fmt.Errorf("load %s: %w", c.spec.Name, err)
	}

	items := []T{}
	if raw, ok := data[c.spec.ListKey]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &items); err != nil {
			c.logger.Warn("decode list failed", zap.Error(err))
			c.notifier.Toast(ToastDanger, loadFailedMessage)
			return fmt.Errorf("decode %s list: %w", c.spec.Name, err)
		}
	}

	defer c.items.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Debug("cache reset during load, dropping result")
		return fmt.Errorf("load %s: %w", c.spec.Name, ErrLoadSuperseded)
	}
	c.list = items
	c.loaded = true
	c.sortLocked()
	c.publishLocked()
	return nil
}

// Create agrega exactamente una vez la entidad confirmada por el servidor.
func (c *EntityCache[T]) Create(ctx context.Context, item T) (T, error) {
	gen := c.generation()
	created, err := c.write(ctx, "create", item)
	if err != nil {
		return created, err
	}
	defer c.items.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(created, gen)
	return c.cloneItem(created), nil
}

// Update reemplaza por id la entidad, manteniendo el orden.
func (c *EntityCache[T]) Update(ctx context.Context, item T) (T, error) {
	gen := c.generation()
	updated, err := c.write(ctx, "update", item)
	if err != nil {
		return updated, err
	}
	defer c.items.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(updated, gen)
	return c.cloneItem(updated), nil
}

// Delete quita la entidad por id. Un id ausente no cambia la lista ni republica.
func (c *EntityCache[T]) Delete(ctx context.Context, id int64) error {
	if c.api == nil {
		return ErrNotConfigured
	}
	gen := c.generation()
	body := map[string]int64{c.spec.IDField: id}
	if err := c.api.Post(ctx, c.spec.BasePath+"/delete", body, nil); err != nil {
		c.logger.Warn("delete failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete %s %d: %w", c.spec.Name, id, err)
	}

	defer c.items.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	i := c.indexLocked(id)
	if i < 0 {
		return nil
	}
	c.list = append(c.list[:i:i], c.list[i+1:]...)
	c.publishLocked()
	return nil
}

// Mutate reescribe la lista localmente sin ir al servidor. fn recibe una
// copia y devuelve la lista nueva. No hace nada si la lista no se cargó.
func (c *EntityCache[T]) Mutate(fn func([]T) []T) {
	defer c.items.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	c.list = fn(c.copyLocked())
	if c.list == nil {
		c.list = []T{}
	}
	c.publishLocked()
}

// Reset vuelve al estado "no cargado" y publica nil. Las cargas y escrituras
// en vuelo que empezaron antes ya no tocan la lista.
func (c *EntityCache[T]) Reset() {
	defer c.items.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if !c.loaded {
		return
	}
	c.list = nil
	c.loaded = false
	c.items.Stage(nil)
}

func (c *EntityCache[T]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *EntityCache[T]) write(ctx context.Context, op string, item T) (T, error) {
	var zero T
	if c.api == nil {
		return zero, ErrNotConfigured
	}
	var data map[string]json.RawMessage
	if err := c.api.Post(ctx, c.spec.BasePath+"/"+op, item, &data); err != nil {
		c.logger.Warn(op+" failed", zap.Error(err))
		return zero, fmt.Errorf("%s %s: %w", op, c.spec.Name, err)
	}
	confirmed, err := c.decodeItem(data, item)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", op, c.spec.Name, err)
	}
	return confirmed, nil
}

func (c *EntityCache[T]) decodeItem(data map[string]json.RawMessage, submitted T) (T, error) {
	var out T
	if raw, ok := data[c.spec.ItemKey]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("decode %s: %w", c.spec.ItemKey, err)
		}
		return out, nil
	}
	if raw, ok := data[c.spec.IDField]; ok && c.spec.WithID != nil && !isNull(raw) {
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return out, fmt.Errorf("decode %s: %w", c.spec.IDField, err)
		}
		return c.spec.WithID(submitted, id), nil
	}
	return out, apiclient.ErrEmptyData
}

// upsertLocked reemplaza la entrada con el mismo id o la agrega al final.
// gen es la generación en que empezó la escritura.
func (c *EntityCache[T]) upsertLocked(item T, gen uint64) {
	if c.gen != gen {
		c.logger.Debug("write confirmed after reset, list left untouched")
		return
	}
	if !c.loaded {
		c.logger.Debug("write confirmed before first load, list left unloaded")
		return
	}
	if i := c.indexLocked(c.spec.ID(item)); i >= 0 {
		c.list[i] = item
	} else {
		c.list = append(c.list, item)
	}
	c.sortLocked()
	c.publishLocked()
}

func (c *EntityCache[T]) indexLocked(id int64) int {
	for i, it := range c.list {
		if c.spec.ID(it) == id {
			return i
		}
	}
	return -1
}

func (c *EntityCache[T]) sortLocked() {
	if c.spec.Less == nil {
		return
	}
	sort.SliceStable(c.list, func(i, j int) bool { return c.spec.Less(c.list[i], c.list[j]) })
}

// publishLocked encola la instantánea; la entrega ocurre en Flush, ya sin c.mu.
func (c *EntityCache[T]) publishLocked() {
	c.items.Stage(c.copyLocked())
}

func (c *EntityCache[T]) copyLocked() []T {
	out := make([]T, len(c.list))
	for i, it := range c.list {
		out[i] = c.cloneItem(it)
	}
	return out
}

func (c *EntityCache[T]) cloneItem(it T) T {
	if c.spec.Clone == nil {
		return it
	}
	return c.spec.Clone(it)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
