package port

import (
	"context"
	"errors"
)

// ErrCacheMiss ключа нет в кэше или срок его жизни истек
var ErrCacheMiss = errors.New("cache miss")

// Cache кэш ответов чтения: текущая оценка и страницы истории.
// Значения хранятся сериализованными, поэтому Get заполняет dest.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error

	// DeletePattern сбрасывает группу ключей по glob-шаблону, например history:*
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
