package prefabs

import (
	"fmt"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// Build instantiates a scene into the world against the given physics
// world. It returns the created entities by name so callers can keep
// driving them.
func Build(w *ecs.World, pw *physics.World, scene SceneSpec) (map[string]ecs.Entity, error) {
	if scene.Gravity != nil {
		pw.WorldServer().SetGravity(scene.Gravity.Vec())
	}

	shapes := map[string]component.Shape{}
	for name, spec := range scene.Shapes {
		desc, err := spec.Desc()
		if err != nil {
			return nil, fmt.Errorf("prefabs: shape %q: %w", name, err)
		}
		sh, err := component.NewShape(pw, desc)
		if err != nil {
			return nil, fmt.Errorf("prefabs: shape %q: %w", name, err)
		}
		shapes[name] = sh
	}

	// The builder's shape refs go at the end: entities keep their own
	// clones, and shapes no entity wears get collected.
	defer func() {
		for _, sh := range shapes {
			sh.Handle.Release()
		}
	}()

	entities := map[string]ecs.Entity{}
	for _, spec := range scene.Entities {
		e, err := buildEntity(w, pw, spec, shapes)
		if err != nil {
			return nil, err
		}
		if spec.Name != "" {
			entities[spec.Name] = e
		}
	}

	// Parents resolve after every entity exists; specs may reference
	// entities declared later in the file.
	for _, spec := range scene.Entities {
		if spec.Parent == "" {
			continue
		}
		parent, ok := entities[spec.Parent]
		if !ok {
			return nil, fmt.Errorf("prefabs: entity %q: unknown parent %q", spec.Name, spec.Parent)
		}
		child := entities[spec.Name]
		if err := ecs.Add(w, child, ecs.ParentKind, ecs.Parent{Entity: parent}); err != nil {
			return nil, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
		if err := ecs.Add(w, child, component.AttachmentKind, component.Attachment{}); err != nil {
			return nil, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
	}

	for i, spec := range scene.Joints {
		if err := buildJoint(w, pw, spec, entities); err != nil {
			return nil, fmt.Errorf("prefabs: joint %d: %w", i, err)
		}
	}

	return entities, nil
}

func buildEntity(w *ecs.World, pw *physics.World, spec EntitySpec, shapes map[string]component.Shape) (ecs.Entity, error) {
	e := w.CreateEntity()

	if spec.Transform != nil {
		tf := component.Transform{
			Position: physics.Vec2{X: spec.Transform.X, Y: spec.Transform.Y},
			Angle:    spec.Transform.Angle,
		}
		if err := ecs.Add(w, e, component.TransformKind, tf); err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
	}

	if spec.Body != nil {
		desc, err := spec.Body.Desc()
		if err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
		rb, err := component.NewRigidBody(pw, desc)
		if err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
		if err := ecs.Add(w, e, component.RigidBodyKind, rb); err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
	}

	if spec.Area != nil {
		area, err := component.NewArea(pw, spec.Area.Desc())
		if err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
		if err := ecs.Add(w, e, component.AreaKind, area); err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
	}

	if spec.Shape != "" {
		sh, ok := shapes[spec.Shape]
		if !ok {
			return e, fmt.Errorf("prefabs: entity %q: unknown shape %q", spec.Name, spec.Shape)
		}
		if err := ecs.Add(w, e, component.ShapeKind, sh.Share()); err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
	}

	if spec.Script != "" {
		source, err := LoadScript(spec.Script)
		if err != nil {
			return e, fmt.Errorf("prefabs: entity %q: script %q: %w", spec.Name, spec.Script, err)
		}
		script := component.Script{Name: spec.Script, Source: string(source)}
		if err := ecs.Add(w, e, component.ScriptKind, script); err != nil {
			return e, fmt.Errorf("prefabs: entity %q: %w", spec.Name, err)
		}
	}

	return e, nil
}

func buildJoint(w *ecs.World, pw *physics.World, spec JointSpec, entities map[string]ecs.Entity) error {
	if len(spec.Bodies) != 2 {
		return fmt.Errorf("joints take exactly two bodies, got %d: %w", len(spec.Bodies), physics.ErrBadDesc)
	}
	desc, err := spec.Desc()
	if err != nil {
		return err
	}
	joint, err := component.NewJoint(pw, desc, spec.Anchor.Pose())
	if err != nil {
		return err
	}
	for i, name := range spec.Bodies {
		e, ok := entities[name]
		if !ok {
			joint.Handle.Release()
			return fmt.Errorf("unknown entity %q", name)
		}
		c := joint
		if i > 0 {
			c = joint.Share()
		}
		if err := ecs.Add(w, e, component.JointKind, c); err != nil {
			return err
		}
	}
	return nil
}
