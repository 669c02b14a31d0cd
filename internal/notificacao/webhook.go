package notificacao

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

var clienteWebhook = &http.Client{Timeout: 10 * time.Second}

// EnviarWebhookDecisao avisa o CRM que o cliente decidiu sobre uma
// proposta pelo portal. Falha aqui não interfere no fluxo de aceite.
func EnviarWebhookDecisao(numero, cliente string, valorTotal float64, status string) {
	url := os.Getenv("CRM_WEBHOOK_URL")
	if url == "" {
		return
	}

	payload := map[string]any{
		"evento":     "proposta_" + status,
		"numero":     numero,
		"cliente":    cliente,
		"valorTotal": valorTotal,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)

	resp, err := clienteWebhook.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Printf("Erro ao enviar webhook: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("Webhook respondeu %d para a proposta %s", resp.StatusCode, numero)
	}
}
