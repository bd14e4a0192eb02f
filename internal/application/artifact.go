package application

import "encoding/json"

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := m[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// ExtractArtifactID resolve o identificador do documento dentro do envelope de
// resposta do provedor. O id real pode estar no topo, aninhado em "nota" ou na
// lista "documents"; o externalId é usado apenas como último recurso.
func ExtractArtifactID(providerResponse json.RawMessage, fallbackExternalID string) string {
	var decoded any
	if err := json.Unmarshal(providerResponse, &decoded); err != nil {
		return fallbackExternalID
	}

	if list, ok := decoded.([]any); ok {
		if len(list) == 0 {
			return fallbackExternalID
		}
		decoded = list[0]
	}

	envelope, ok := decoded.(map[string]any)
	if !ok {
		return fallbackExternalID
	}

	if id := firstString(envelope, "idNota", "id"); id != "" {
		return id
	}

	if nota, ok := envelope["nota"].(map[string]any); ok {
		if id := firstString(nota, "idNota", "id"); id != "" {
			return id
		}
	}

	documents := envelope["documents"]
	if list, ok := documents.([]any); ok && len(list) > 0 {
		documents = list[0]
	}
	if doc, ok := documents.(map[string]any); ok {
		if id := firstString(doc, "idNota", "id"); id != "" {
			return id
		}
	}

	return fallbackExternalID
}
