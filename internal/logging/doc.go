// Package logging provides the process-wide structured logger used by every
// component: Debug/Info/Warn/Error printf-style calls backed by logrus, an
// optional rotating file sink configured from the logging section of the
// configuration document, and WithComponent/WithFields for structured lines.
package logging
