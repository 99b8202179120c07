// Package stage owns the cooperative lifecycle shared by every pipeline
// stage: a six-state machine driven by a per-stage worker goroutine.
//
//	          <- no worker | worker ->
//	                       |
//	                       |          ----------
//	  New()                | Start()  |        |  Paused is wrapped in the
//	   ---\             /--|----------# Paused |  single-shot edge WaitingToPause
//	       \           /   |          |        |
//	        \         /    |          --------#-
//	    -----#-------/--   |           |      |   Stopped is wrapped in the
//	    |              |   |     Run() |      |   single-shot edge WaitingToStop
//	    |   Stopped    |   |           |      | Pause()
//	    -----#----------   |           |      |
//	          \            |         --#--------
//	           \           | Stop()  |         |  Running is wrapped in the
//	            \----------|---------| Running |  single-shot edge WaitingToRun
//	                       |         |         |
//	                       |         -----------
//
// The Waiting* edges give each stage a place to build up or tear down
// whatever the pipeline requires before the worker settles into one of
// the resting states (Paused, Running, Stopped). Edge callbacks run
// exactly once per transition; resting callbacks run repeatedly with a
// sleep of the stage's yield time between ticks.
//
// The worker goroutine is created on Start and joined on Stop. State
// changes requested from outside take effect on the worker's next tick;
// the worker never dispatches a callback for a state it has already
// left.
package stage
