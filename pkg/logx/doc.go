// Package logx wraps zerolog behind a small Logger/Field API with
// hot-swappable sinks (console, file, chat group).
package logx
