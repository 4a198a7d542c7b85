/*

Process of trace scheduling

Bril Program (json) ->
	decode ->
Trace (ir.Instr, one function body) ->
	dep.Build ->
Dependence Graph (dep) ->
	AssignPriority ->
Graph with heights ->
	sched.Schedule (target.Machine decides co-issue) ->
Groups (ir.Group: guards, instrs, fail label) ->
	format / json ->
Scheduled Program

*/
package compiler
