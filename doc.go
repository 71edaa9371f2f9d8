/*
Package sqlbus implements the client side of a remote SQL-execution bus.

Application code calls (*client.Client).SendQuery with a database name and a
SQL statement; the client classifies the statement as a read or a write,
ships it over a ZeroMQ publish or dealer socket to whichever "middleman"
processes are subscribed, and blocks until a matching response arrives or a
deadline expires. The middleman that actually executes SQL against a
database is a separate process and not part of this module.

Package sqlbus itself holds the data types and errors shared by the client
and wire packages; the client package contains the lifecycle manager,
background pump, and public API.
*/
package sqlbus
