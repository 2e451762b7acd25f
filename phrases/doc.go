// Package phrases calls the phrase-collection endpoints of the app server on
// behalf of the signed-in user and reports outcomes as toasts.
package phrases
