// Package logx wraps zerolog behind a small structured-logging API with
// console and file sinks and runtime-reconfigurable level.
package logx
