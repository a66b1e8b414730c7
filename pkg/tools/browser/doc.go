// Package browser exposes a devtools session to debugging agents as XML tools.
//
// The tools fall into three groups:
//
//   - Connection: devtools_list_targets, devtools_connect, devtools_disconnect
//   - Inspection: devtools_console, devtools_network, devtools_clear,
//     devtools_evaluate, devtools_browser_info
//   - Local browser: launch_browser, close_browser (only when a launcher is
//     supplied to the registry)
//
// Unset connection arguments come from the devtools config section when
// config is initialized, otherwise from the protocol defaults
// (chrome dialect, localhost:9222).
//
// # Usage
//
//	session := devtools.New(devtools.Options{Logger: logger})
//	registry := browser.NewToolRegistry(session, launcher.New())
//	tool, _ := registry.Lookup("devtools_console")
//	out, _, err := tool.Execute(ctx, []byte(`<arguments><severity>error</severity></arguments>`))
package browser
