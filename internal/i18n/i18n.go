// Package i18n looks up the default labels and status messages shown by
// dialogs, forms and the auth store.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Translator resolves a message key to a localized string. Unknown keys are
// returned unchanged, formatted with args.
type Translator interface {
	T(key string, args ...any) string
}

// Func adapts a plain function to Translator.
type Func func(key string, args ...any) string

// T implements Translator.
func (f Func) T(key string, args ...any) string { return f(key, args...) }

// Message keys used across the toolkit.
const (
	KeyConfirm         = "dialog.confirm"
	KeyCancel          = "dialog.cancel"
	KeyOK              = "dialog.ok"
	KeySubmit          = "dialog.submit"
	KeyConfirmTitle    = "dialog.confirm.title"
	KeySuccessTitle    = "dialog.success.title"
	KeyErrorTitle      = "dialog.error.title"
	KeyPromptTitle     = "dialog.prompt.title"
	KeyInvalidInput    = "dialog.invalid"
	KeyFormCreated     = "form.created"
	KeyFormUpdated     = "form.updated"
	KeyFormFailed      = "form.failed"
	KeyFormBusy        = "form.busy"
	KeyFormCreateTitle = "form.create.title"
	KeyFormEditTitle   = "form.edit.title"
	KeyLoginFailed     = "auth.login.failed"
	KeyLogoutFailed    = "auth.logout.failed"
	KeyCheckFailed     = "auth.check.failed"
	KeyActionFailed    = "auth.action.failed"
	KeySessionEnded    = "auth.session.ended"
	KeyPermissionNo    = "auth.permission.denied"
	KeyCapabilityNo    = "auth.capability.absent"
	KeyRequestFailed   = "provider.request.failed"
)

var supported = []language.Tag{language.English, language.German}

var entries = map[language.Tag]map[string]string{
	language.English: {
		KeyConfirm:         "Confirm",
		KeyCancel:          "Cancel",
		KeyOK:              "OK",
		KeySubmit:          "Submit",
		KeyConfirmTitle:    "Are you sure?",
		KeySuccessTitle:    "Success",
		KeyErrorTitle:      "Error",
		KeyPromptTitle:     "Input required",
		KeyInvalidInput:    "Invalid input: %s",
		KeyFormCreated:     "Created successfully",
		KeyFormUpdated:     "Saved successfully",
		KeyFormFailed:      "Submission failed",
		KeyFormBusy:        "A submission is already in progress",
		KeyFormCreateTitle: "Create",
		KeyFormEditTitle:   "Edit",
		KeyLoginFailed:     "Login failed",
		KeyLogoutFailed:    "Logout failed",
		KeyCheckFailed:     "Session is no longer valid",
		KeyActionFailed:    "Request failed",
		KeySessionEnded:    "Your session has ended",
		KeyPermissionNo:    "You are not allowed to %s",
		KeyCapabilityNo:    "This backend does not support %s",
		KeyRequestFailed:   "Request to %s failed",
	},
	language.German: {
		KeyConfirm:         "Bestätigen",
		KeyCancel:          "Abbrechen",
		KeyOK:              "OK",
		KeySubmit:          "Absenden",
		KeyConfirmTitle:    "Sind Sie sicher?",
		KeySuccessTitle:    "Erfolg",
		KeyErrorTitle:      "Fehler",
		KeyPromptTitle:     "Eingabe erforderlich",
		KeyInvalidInput:    "Ungültige Eingabe: %s",
		KeyFormCreated:     "Erfolgreich erstellt",
		KeyFormUpdated:     "Erfolgreich gespeichert",
		KeyFormFailed:      "Absenden fehlgeschlagen",
		KeyFormBusy:        "Eine Übermittlung läuft bereits",
		KeyFormCreateTitle: "Erstellen",
		KeyFormEditTitle:   "Bearbeiten",
		KeyLoginFailed:     "Anmeldung fehlgeschlagen",
		KeyLogoutFailed:    "Abmeldung fehlgeschlagen",
		KeyCheckFailed:     "Die Sitzung ist nicht mehr gültig",
		KeyActionFailed:    "Anfrage fehlgeschlagen",
		KeySessionEnded:    "Ihre Sitzung wurde beendet",
		KeyPermissionNo:    "Sie dürfen %s nicht ausführen",
		KeyCapabilityNo:    "Dieses Backend unterstützt %s nicht",
		KeyRequestFailed:   "Anfrage an %s fehlgeschlagen",
	},
}

var (
	builtin = buildCatalog()
	matcher = language.NewMatcher(supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range entries {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Catalog is a Translator bound to one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for the best supported match of lang
// (a BCP 47 tag such as "de-AT"). Unparseable input selects English.
func New(lang string) *Catalog {
	tag, _ := language.MatchStrings(matcher, lang)
	base, _ := tag.Base()
	tag = language.Make(base.String())
	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builtin)),
	}
}

// Default is the English catalog.
func Default() *Catalog { return New("en") }

// Language reports the tag the catalog resolved to.
func (c *Catalog) Language() language.Tag { return c.tag }

// T implements Translator.
func (c *Catalog) T(key string, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
