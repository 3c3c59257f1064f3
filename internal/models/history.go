package models

// History хранит упорядоченное отображение id -> список версий.
// Версии только добавляются, порядок id соответствует порядку первого добавления.
type History[T any] struct {
	order    []string
	versions map[string][]T
}

// HistoryEntry - явное представление одного id истории для сериализации.
type HistoryEntry[T any] struct {
	ID       string `json:"id"`
	Versions []T    `json:"versions"`
}

func NewHistory[T any]() *History[T] {
	return &History[T]{versions: make(map[string][]T)}
}

// HistoryFromEntries восстанавливает историю из сериализованного вида с сохранением порядка.
func HistoryFromEntries[T any](entries []HistoryEntry[T]) *History[T] {
	h := NewHistory[T]()
	for _, e := range entries {
		for _, v := range e.Versions {
			h.Append(e.ID, v)
		}
		if len(e.Versions) == 0 {
			h.touch(e.ID)
		}
	}
	return h
}

func (h *History[T]) touch(id string) {
	if _, ok := h.versions[id]; !ok {
		h.order = append(h.order, id)
		h.versions[id] = nil
	}
}

// Append добавляет новую версию для id.
func (h *History[T]) Append(id string, v T) {
	h.touch(id)
	h.versions[id] = append(h.versions[id], v)
}

// Latest возвращает последнюю версию id.
func (h *History[T]) Latest(id string) (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	vs := h.versions[id]
	if len(vs) == 0 {
		return zero, false
	}
	return vs[len(vs)-1], true
}

// Versions возвращает копию списка версий id.
func (h *History[T]) Versions(id string) []T {
	if h == nil {
		return nil
	}
	return append([]T(nil), h.versions[id]...)
}

// IDs возвращает id в порядке добавления.
func (h *History[T]) IDs() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.order...)
}

func (h *History[T]) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// Entries возвращает историю в виде списка для сериализации.
func (h *History[T]) Entries() []HistoryEntry[T] {
	if h == nil {
		return nil
	}
	out := make([]HistoryEntry[T], 0, len(h.order))
	for _, id := range h.order {
		out = append(out, HistoryEntry[T]{ID: id, Versions: append([]T(nil), h.versions[id]...)})
	}
	return out
}
