package applyflow

import "jobmate/autoapply-service/internal/textnorm"

// Keyword sets are matched with textnorm.ContainsAny, so entries are written
// without accents or punctuation. Languages: en, fr, de, es, it, pt, nl.
var (
	submitKeywords = []string{
		"submit application", "submit", "send application",
		"envoyer la candidature", "envoyer", "soumettre",
		"bewerbung senden", "absenden", "einreichen",
		"enviar solicitud", "enviar candidatura", "enviar",
		"invia candidatura", "invia",
		"submeter",
		"sollicitatie versturen", "versturen", "verzenden",
	}
	reviewKeywords = []string{
		"review", "review your application",
		"verifier", "relire",
		"uberprufen",
		"revisar",
		"rivedi", "verifica",
		"controleren", "beoordelen",
	}
	nextKeywords = []string{
		"next", "continue", "continue to next step",
		"suivant", "continuer",
		"weiter", "fortfahren",
		"siguiente", "continuar",
		"avanti", "continua",
		"proximo", "seguinte",
		"volgende", "doorgaan",
	}
	validationKeywords = []string{
		"please enter a valid", "this field is required", "please make a selection",
		"veuillez entrer", "veuillez saisir", "ce champ est obligatoire", "veuillez selectionner",
		"dieses feld ist erforderlich", "bitte geben sie",
		"este campo es obligatorio", "introduce un valor",
		"campo obbligatorio", "inserisci un valore",
		"campo obrigatorio", "insira um valor",
		"dit veld is verplicht", "vul een geldig",
	}
	successKeywords = []string{
		"application was sent", "application submitted", "your application has been submitted",
		"candidature a ete envoyee", "candidature envoyee",
		"bewerbung wurde gesendet", "bewerbung wurde versendet",
		"solicitud enviada", "se ha enviado tu solicitud",
		"candidatura inviata",
		"candidatura enviada",
		"sollicitatie is verzonden",
	}
	alreadyAppliedKeywords = []string{
		"you applied", "applied on", "application submitted", "application sent",
		"vous avez postule", "candidature envoyee",
		"bereits beworben", "sie haben sich beworben",
		"ya has solicitado", "solicitud enviada",
		"ti sei candidato", "candidatura inviata",
		"voce se candidatou", "candidatura enviada",
		"je hebt gesolliciteerd",
	}
	agreementKeywords = []string{
		"agree", "i agree", "consent", "terms", "privacy policy",
		"j accepte", "conditions", "consentement",
		"zustimmen", "einwilligung", "datenschutz",
		"acepto", "consiento", "terminos",
		"accetto", "acconsento",
		"concordo", "aceito",
		"akkoord", "ga akkoord", "voorwaarden",
	}
)

// Action is what the primary modal button does, read from its label.
type Action int

const (
	ActionUnknown Action = iota
	ActionNext
	ActionReview
	ActionSubmit
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionReview:
		return "review"
	case ActionSubmit:
		return "submit"
	}
	return "unknown"
}

// ClassifyAction reads a button label. Submit keywords are checked before
// review and next keywords.
func ClassifyAction(label string) Action {
	switch {
	case textnorm.ContainsAny(label, submitKeywords):
		return ActionSubmit
	case textnorm.ContainsAny(label, reviewKeywords):
		return ActionReview
	case textnorm.ContainsAny(label, nextKeywords):
		return ActionNext
	}
	return ActionUnknown
}
