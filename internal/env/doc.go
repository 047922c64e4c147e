// Package env runs control episodes over a physics model and a task.
//
// [Environment] follows the reset/step protocol of RL environment suites:
// [Environment.Reset] returns a First [TimeStep], [Environment.Step] returns
// Mid steps until the time limit or a physics divergence produces a Last one.
// Divergence ends the episode with discount 0. The time limit keeps the
// configured discount.
//
// [RunEpisode] drives an environment with a [Policy] and collects a [Result];
// [RunBatch] runs independent environments concurrently.
package env
