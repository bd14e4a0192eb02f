package plugnotas

import (
	"encoding/json"
	"strings"

	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
)

// MapStatus converte o vocabulário de status da PlugNotas para o domínio.
// "concluido" é o vocabulário próprio da PlugNotas para nota autorizada.
func MapStatus(status string) emission.Status {
	s := strings.ToLower(status)

	switch {
	case strings.Contains(s, "conclu"), strings.Contains(s, "autoriz"):
		return emission.StatusAuthorized
	case strings.Contains(s, "rejeit"), strings.Contains(s, "negad"):
		return emission.StatusRejected
	case strings.Contains(s, "cancel"):
		return emission.StatusCanceled
	case strings.Contains(s, "erro"), strings.Contains(s, "falh"):
		return emission.StatusError
	}

	return emission.StatusPending
}

func normalizeEnvelope(raw json.RawMessage) map[string]any {
	var asAny any
	if err := json.Unmarshal(raw, &asAny); err != nil {
		return nil
	}

	// Respostas de lote chegam como array com um elemento
	if list, ok := asAny.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		asAny = list[0]
	}

	envelope, _ := asAny.(map[string]any)
	return envelope
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}

// ExtractStatus localiza o campo de situação na resposta da PlugNotas, que
// varia conforme o endpoint consultado
func ExtractStatus(raw json.RawMessage) string {
	envelope := normalizeEnvelope(raw)
	if envelope == nil {
		return ""
	}

	if retorno, ok := envelope["retorno"].(map[string]any); ok {
		if s := stringField(retorno, "situacao"); s != "" {
			return s
		}
		if s := stringField(retorno, "status"); s != "" {
			return s
		}
	}

	for _, key := range []string{"status", "situacao", "statusNota", "statusNfse", "situacaoNota", "situacaoRps"} {
		if s := stringField(envelope, key); s != "" {
			return s
		}
	}

	return ""
}

// ExtractProtocol localiza o identificador de acompanhamento na resposta de
// emissão, inclusive em corpos de erro do sandbox
func ExtractProtocol(raw json.RawMessage) string {
	envelope := normalizeEnvelope(raw)
	if envelope == nil {
		return ""
	}

	for _, key := range []string{"protocol", "protocolo", "id", "idNota"} {
		if s := stringField(envelope, key); s != "" {
			return s
		}
	}

	if documents, ok := envelope["documents"].([]any); ok && len(documents) > 0 {
		if doc, ok := documents[0].(map[string]any); ok {
			for _, key := range []string{"protocol", "protocolo", "id", "idNota"} {
				if s := stringField(doc, key); s != "" {
					return s
				}
			}
		}
	}

	return ""
}
