package cli

import (
	"errors"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/authz"
	"github.com/platinummonkey/tartalacrm/pkg/service"
)

const (
	msgWelcome        = "Bienvenue dans TartalaCRM !"
	msgLoggedIn       = "Connecté avec succès."
	msgLoggedOut      = "Déconnecté."
	msgNotLoggedIn    = "Aucune session en cours."
	msgBadCredentials = "Désolé, votre utilisateur ou mot de passe n'est pas connu. Veuillez recommencer."
	msgNoSession      = "Vous ne pouvez pas accéder à l'application sans JWT. Merci d'utiliser la commande 'login' pour vous connecter."
	msgTokenExpired   = "Votre token est expiré. Merci d'utiliser la commande 'login' pour vous connecter."
	msgTokenInvalid   = "Votre token n'est pas valide. Merci d'utiliser la commande 'login' pour vous connecter."
	msgTokenMalformed = "Votre token n'est pas dans un format valide. Merci d'utiliser la commande 'login' pour vous connecter."
	msgUnknownUser    = "Utilisateur inconnu"
	msgForbidden      = "Vous n'êtes pas autorisé à effectuer cette action."
	msgNotOwner       = "Vous n'êtes pas autorisé à modifier cette fiche : vous n'en êtes pas le propriétaire."
	msgNotClientOwner = "Vous n'êtes pas autorisé à créer ce contrat : vous n'êtes pas le contact commercial de ce client."
	msgNotFound       = "Aucune fiche ne correspond à cet identifiant."
	msgInternal       = "Une erreur interne est survenue. Merci de réessayer plus tard."
	msgCancelled      = "Suppression annulée."
)

// Describe returns the French message shown for err.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrNoSession), errors.Is(err, authz.ErrMissingToken):
		return msgNoSession
	case errors.Is(err, auth.ErrTokenExpired):
		return msgTokenExpired
	case errors.Is(err, auth.ErrInvalidSignature):
		return msgTokenInvalid
	case errors.Is(err, auth.ErrMalformedToken):
		return msgTokenMalformed
	case errors.Is(err, auth.ErrUnknownPrincipal):
		return msgUnknownUser
	case errors.Is(err, service.ErrInvalidCredentials):
		return msgBadCredentials
	case errors.Is(err, authz.ErrNotOwner):
		return msgNotOwner
	case errors.Is(err, authz.ErrNotClientOwner):
		return msgNotClientOwner
	}

	switch apperr.KindOf(err) {
	case apperr.KindForbidden:
		return msgForbidden
	case apperr.KindNotFound:
		return msgNotFound
	case apperr.KindValidation:
		return "Saisie invalide : " + err.Error()
	case apperr.KindConflict:
		return "Opération impossible : " + err.Error()
	case apperr.KindUnauthenticated:
		return msgNoSession
	}
	return msgInternal
}
