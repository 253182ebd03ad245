// physics-stress runs a scene headless against one or more physics
// backends. It is the smoke rig for the engine bridge: scene loading,
// fixed stepping, scripts, overlap events, and backend comparison.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	_ "github.com/milk9111/physkit/backend/box2d"
	_ "github.com/milk9111/physkit/backend/chipmunk"
	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/ecs/system"
	"github.com/milk9111/physkit/physics"
	"github.com/milk9111/physkit/prefabs"
)

func main() {
	backendName := flag.String("backend", "chipmunk", "physics backend to run")
	sceneName := flag.String("scene", "stack.yaml", "scene file in prefabs/scenes/")
	seconds := flag.Float64("seconds", 10, "simulated seconds to run")
	fps := flag.Float64("fps", 60, "frame rate to simulate")
	compare := flag.Bool("compare", false, "run the scene on every registered backend and diff final poses")
	watch := flag.Bool("watch", false, "rerun when the scene or a script changes")
	flag.Parse()

	log.SetFlags(0)

	if *compare {
		if err := runComparison(*sceneName, *seconds, *fps); err != nil {
			log.Fatalf("physics-stress: %v", err)
		}
		return
	}

	if err := runOnce(*backendName, *sceneName, *seconds, *fps); err != nil {
		log.Fatalf("physics-stress: %v", err)
	}

	if *watch {
		watchAndRerun(*backendName, *sceneName, *seconds, *fps)
	}
}

// runOnce simulates the scene on one backend and prints the final poses.
func runOnce(backendName, sceneName string, seconds, fps float64) error {
	scene, err := prefabs.LoadSceneSpec(sceneName)
	if err != nil {
		return err
	}
	pw, err := physics.Open(backendName)
	if err != nil {
		return err
	}

	w := ecs.NewWorld()
	w.AttachPhysics(pw)
	suite := system.Register(w, system.WithScripts())

	entities, err := prefabs.Build(w, pw, scene)
	if err != nil {
		return err
	}
	log.Printf("scene %s on %s: %d entities", sceneName, pw.Backend(), len(entities))

	frames := int(seconds * fps)
	delta := 1 / fps
	steps := 0
	overlaps := 0
	for i := 0; i < frames; i++ {
		w.Update(delta)
		steps += suite.Stepper.FrameSteps()
		overlaps += drainOverlaps(w, pw, true)
	}

	log.Printf("ran %d frames, %d physics steps, %d overlap events", frames, steps, overlaps)
	for _, name := range sortedNames(entities) {
		if pose, ok := entityPose(w, pw, entities[name]); ok {
			log.Printf("  %-12s x=%8.3f y=%8.3f angle=%7.3f", name, pose.Position.X, pose.Position.Y, pose.Angle)
		}
	}
	return nil
}

// runComparison runs the scene on every registered backend and reports
// how far apart the final poses land. The backends never agree exactly;
// the point is catching one of them flying off to infinity.
func runComparison(sceneName string, seconds, fps float64) error {
	scene, err := prefabs.LoadSceneSpec(sceneName)
	if err != nil {
		return err
	}

	backends := physics.Backends()
	w := ecs.NewWorld()
	system.Register(w, system.WithScripts())

	// One entity set per backend, all stepped by the same world update.
	sets := map[string]map[string]ecs.Entity{}
	worlds := map[string]*physics.World{}
	for _, name := range backends {
		pw, err := physics.Open(name)
		if err != nil {
			return err
		}
		w.AttachPhysics(pw)
		entities, err := prefabs.Build(w, pw, scene)
		if err != nil {
			return fmt.Errorf("build on %s: %w", name, err)
		}
		sets[name] = entities
		worlds[name] = pw
	}

	frames := int(seconds * fps)
	delta := 1 / fps
	for i := 0; i < frames; i++ {
		w.Update(delta)
		for _, pw := range worlds {
			drainOverlaps(w, pw, false)
		}
	}

	log.Printf("scene %s after %.1fs on %v:", sceneName, seconds, backends)
	reference := backends[0]
	for _, entityName := range sortedNames(sets[reference]) {
		refPose, ok := entityPose(w, worlds[reference], sets[reference][entityName])
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-12s", entityName)
		for _, backendName := range backends {
			pose, ok := entityPose(w, worlds[backendName], sets[backendName][entityName])
			if !ok {
				continue
			}
			drift := math.Hypot(pose.Position.X-refPose.Position.X, pose.Position.Y-refPose.Position.Y)
			line += fmt.Sprintf("  %s=(%.2f,%.2f) drift=%.2f", backendName, pose.Position.X, pose.Position.Y, drift)
		}
		log.Print(line)
	}
	return nil
}

func watchAndRerun(backendName, sceneName string, seconds, fps float64) {
	watcher, err := prefabs.NewWatcher("prefabs/scenes", "prefabs/scripts")
	if err != nil {
		log.Printf("physics-stress: watch disabled: %v", err)
		return
	}
	defer watcher.Close()

	log.Printf("watching prefabs/ for changes, ctrl-c to quit")
	for {
		select {
		case path, ok := <-watcher.Events:
			if !ok {
				return
			}
			log.Printf("%s changed, rerunning", path)
			if err := runOnce(backendName, sceneName, seconds, fps); err != nil {
				log.Printf("physics-stress: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "physics-stress: watch: %v\n", err)
		}
	}
}

// drainOverlaps polls every area owned by the given physics world.
func drainOverlaps(w *ecs.World, pw *physics.World, verbose bool) int {
	count := 0
	for _, e := range w.Query(component.AreaKind.ID()) {
		a, ok := ecs.Get(w, e, component.AreaKind)
		if !ok || a.World != pw || a.Handle == nil {
			continue
		}
		for _, ev := range pw.AreaServer().OverlapEvents(a.Handle.Tag()) {
			count++
			if verbose {
				log.Printf("  area entity=%v %v body=%v entity=%v", e, kindWord(ev.Kind), ev.Body, ev.Entity)
			}
		}
	}
	return count
}

func kindWord(kind physics.OverlapKind) string {
	if kind == physics.OverlapEnter {
		return "enter"
	}
	return "exit"
}

func entityPose(w *ecs.World, pw *physics.World, e ecs.Entity) (physics.Transform, bool) {
	if rb, ok := ecs.Get(w, e, component.RigidBodyKind); ok && rb.World == pw && rb.Handle != nil {
		return pw.RigidBodyServer().Transform(rb.Handle.Tag()), true
	}
	if a, ok := ecs.Get(w, e, component.AreaKind); ok && a.World == pw && a.Handle != nil {
		return pw.AreaServer().Transform(a.Handle.Tag()), true
	}
	return physics.Transform{}, false
}

func sortedNames(entities map[string]ecs.Entity) []string {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
