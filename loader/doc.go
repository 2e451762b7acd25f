// Package loader drives a progress indicator for slow backend requests.
//
// A [Controller] rotates status messages while a request runs, switches to
// "long request" wording once the request has taken a while, ticks an
// elapsed-seconds label and, when finished, shows a closing message whose
// wording depends on the total time. Rendering is delegated to a [Display].
package loader
