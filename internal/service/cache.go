// Пакет service — бизнес-логика Archive Module.
// CacheService — LRU-кэш записей документов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/godocstore/archive-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей документов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей документов.",
	})
)

// CacheService — LRU-кэш записей документов с автоматическим TTL.
// Каждый экземпляр модуля имеет собственный in-memory кэш (per-instance, stateless архитектура).
type CacheService struct {
	cache *expirable.LRU[string, *model.DocumentRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.DocumentRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает DocumentRecord из кэша по documentID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(documentID string) (*model.DocumentRecord, bool) {
	val, ok := c.cache.Get(documentID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(documentID string, record *model.DocumentRecord) {
	c.cache.Add(documentID, record)
}

// Delete удаляет запись из кэша (инвалидация после мутации или удаления).
func (c *CacheService) Delete(documentID string) {
	c.cache.Remove(documentID)
}

// Purge полностью очищает кэш (после полной перезагрузки реестра).
func (c *CacheService) Purge() {
	c.cache.Purge()
}
