// Package registry 提供按名称管理对象的并发安全容器。
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrEmptyName = errors.New("registry: name cannot be empty")
	ErrNotFound  = errors.New("registry: item not found")
)

// Registry 以名称为键保存任意类型的对象，读写由 RWMutex 保护。
type Registry[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

func New[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Register 注册或覆盖，isNew 表示之前不存在
func (r *Registry[T]) Register(name string, item T) (isNew bool, err error) {
	if name == "" {
		return false, ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.items[name]
	r.items[name] = item
	return !exists, nil
}

func (r *Registry[T]) Get(name string) (item T, exists bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, exists = r.items[name]
	return item, exists
}

// GetOrCreate 不存在时调用 creator 创建，creator 在锁内执行
func (r *Registry[T]) GetOrCreate(name string, creator func() (T, error)) (item T, err error) {
	if name == "" {
		return item, ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[name]; ok {
		return existing, nil
	}
	created, err := creator()
	if err != nil {
		return item, fmt.Errorf("failed to create item %s: %w", name, err)
	}
	r.items[name] = created
	return created, nil
}

func (r *Registry[T]) Update(name string, updater func(T) (T, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	updated, err := updater(current)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", name, err)
	}
	r.items[name] = updated
	return nil
}

// Delete 删除并返回被删除的对象
func (r *Registry[T]) Delete(name string) (item T, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, deleted = r.items[name]
	if deleted {
		delete(r.items, name)
	}
	return item, deleted
}

// DeleteIf 仅当 match 返回 true 时删除，判断与删除在同一把锁内完成
func (r *Registry[T]) DeleteIf(name string, match func(T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[name]
	if !ok || !match(item) {
		return false
	}
	delete(r.items, name)
	return true
}

// Drain 清空并返回之前的全部对象，资源释放交给调用方在锁外完成
func (r *Registry[T]) Drain() map[string]T {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items
	r.items = make(map[string]T)
	return items
}

func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
