// Package devtools attaches to a running browser through its remote
// debugging protocol and buffers the telemetry it emits.
//
// A Session owns at most one duplex channel to one target. Inbound frames
// are read by a single goroutine and split two ways:
//
//   - Frames carrying a correlation id resolve the command that is waiting
//     for them (see Session.Send). Commands may complete in any order.
//   - Every other frame is classified into an Event and, when it is a
//     console message, exception or network notification, turned into a
//     record in one of two bounded stores.
//
// # Dialects
//
// Two protocol families are supported:
//
//   - DialectChrome: the Chrome DevTools Protocol. Targets are listed at
//     /json and commands are request/response.
//   - DialectFirefox: the Firefox remote debugging protocol. Targets are
//     listed at /json/list and commands are one-way. Network capture and
//     evaluation are not available.
//
// # Records
//
// Console and network records are kept in fixed-capacity rings
// (DefaultCapacity entries each). The oldest entries are evicted first.
// Queries return the newest matches in chronological order and can
// atomically clear the store.
//
// # Example
//
//	session := devtools.New(devtools.Options{Logger: logger})
//	status, err := session.Connect(ctx, devtools.ConnectOptions{
//	    Dialect: devtools.DialectChrome,
//	    Host:    "localhost",
//	    Port:    9222,
//	})
//	...
//	errs := session.QueryConsole(devtools.ConsoleFilter{Severity: devtools.SeverityError}, 20, false)
//	fmt.Println(devtools.FormatConsole(errs))
package devtools
