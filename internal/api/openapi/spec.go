// Пакет openapi — встроенное описание API Archive Module.
// YAML лежит рядом с кодом и раздаётся по GET /api/v1/openapi.json
// уже распарсенным документом.
package openapi

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	specOnce sync.Once
	specDoc  *openapi3.T
	specErr  error
)

// Spec возвращает распарсенный OpenAPI-документ.
// Парсинг выполняется один раз, результат кэшируется.
func Spec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		specDoc, specErr = loader.LoadFromData(specYAML)
		if specErr != nil {
			specErr = fmt.Errorf("ошибка парсинга openapi.yaml: %w", specErr)
		}
	})
	return specDoc, specErr
}
