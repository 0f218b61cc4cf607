package registry

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the catalog key.
const (
	MsgLoadFailed      = "Failed to load gifts"
	MsgAddFailed       = "Failed to add gift"
	MsgAdded           = "Gift added!"
	MsgClaimantMissing = "Please enter your name"
	MsgClaimFailed     = "Failed to select gift"
	MsgClaimed         = "Gift selected successfully!"

	MsgTitle            = "Gift List"
	MsgSubtitle         = "Housewarming Party"
	MsgDraftPlaceholder = "Add a new gift..."
	MsgAddButton        = "Add"
	MsgAvailableTitle   = "Available Gifts"
	MsgSelectedTitle    = "Selected Gifts"
	MsgClaimButton      = "I want to give this gift"
	MsgAvailableEmpty   = "No gifts available"
	MsgSelectedEmpty    = "No gifts selected yet"
	MsgSelectedBy       = "Selected by: %s"
	MsgPageLabel        = "Page %d of %d"
	MsgDialogTitle      = "Confirm Gift"
	MsgDialogPrompt     = "You are selecting: %s"
	MsgNamePlaceholder  = "Your name"
	MsgCancel           = "Cancel"
	MsgConfirm          = "Confirm"
)

// DefaultLocale is the display language when none is configured.
var DefaultLocale = language.BrazilianPortuguese

var supportedLocales = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
}

var ptBR = map[string]string{
	MsgLoadFailed:      "Erro ao carregar presentes",
	MsgAddFailed:       "Erro ao adicionar presente",
	MsgAdded:           "Presente adicionado!",
	MsgClaimantMissing: "Por favor, insira seu nome",
	MsgClaimFailed:     "Erro ao selecionar presente",
	MsgClaimed:         "Presente selecionado com sucesso!",

	MsgTitle:            "Lista de Presentes",
	MsgSubtitle:         "Chá de Casa Nova",
	MsgDraftPlaceholder: "Adicionar novo presente...",
	MsgAddButton:        "Adicionar",
	MsgAvailableTitle:   "Presentes Disponíveis",
	MsgSelectedTitle:    "Presentes Selecionados",
	MsgClaimButton:      "Quero dar este presente",
	MsgAvailableEmpty:   "Nenhum presente disponível",
	MsgSelectedEmpty:    "Nenhum presente selecionado ainda",
	MsgSelectedBy:       "Selecionado por: %s",
	MsgPageLabel:        "Página %d de %d",
	MsgDialogTitle:      "Confirmar Presente",
	MsgDialogPrompt:     "Você está selecionando: %s",
	MsgNamePlaceholder:  "Seu nome",
	MsgCancel:           "Cancelar",
	MsgConfirm:          "Confirmar",
}

var messageCatalog = mustBuildCatalog()

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(DefaultLocale))
	for key, text := range ptBR {
		if err := b.SetString(language.BrazilianPortuguese, key, text); err != nil {
			panic(fmt.Sprintf("registry: catalog pt-BR %q: %v", key, err))
		}
		if err := b.SetString(language.English, key, key); err != nil {
			panic(fmt.Sprintf("registry: catalog en %q: %v", key, err))
		}
	}
	return b
}

// Messages renders localized user-facing text.
type Messages struct {
	tag language.Tag
	p   *message.Printer
}

// NewMessages returns a printer for the closest supported locale.
// An empty locale selects DefaultLocale; an unparsable one is an error.
func NewMessages(locale string) (*Messages, error) {
	tag := DefaultLocale
	if s := strings.TrimSpace(locale); s != "" {
		parsed, err := language.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("registry: parse locale %q: %w", s, err)
		}
		_, idx, _ := language.NewMatcher(supportedLocales).Match(parsed)
		tag = supportedLocales[idx]
	}
	return &Messages{
		tag: tag,
		p:   message.NewPrinter(tag, message.Catalog(messageCatalog)),
	}, nil
}

// MustMessages is NewMessages for literal locales.
func MustMessages(locale string) *Messages {
	m, err := NewMessages(locale)
	if err != nil {
		panic(err)
	}
	return m
}

// Locale returns the matched catalog language.
func (m *Messages) Locale() language.Tag { return m.tag }

// Text formats the message for key.
func (m *Messages) Text(key string, args ...any) string {
	return m.p.Sprintf(key, args...)
}
