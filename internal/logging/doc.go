// Package logging assembles the slog loggers used across docshell.
//
// Console output goes through a compact human handler that pulls the
// component and document key into the line header. The per-run log file is
// always JSON. NewFromConfig wires both through a fanout handler so a single
// logger feeds the terminal and the file. Context helpers tag lines with the
// document key and request id without threading them through every call.
package logging
