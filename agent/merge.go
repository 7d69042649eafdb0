package agent

import (
	"encoding/json"

	"github.com/pageforge-dev/pageforge/core"
)

// MergeOutputs folds the specialist contributions into a single page
// definition. Conflict priority follows data dependency order: layout
// structure first, then component properties, data bindings, event
// functions, styles, and animations layered last. In modify/enhance modes
// the existing page is the base. Absent (soft-failed) contributions are
// simply skipped, yielding a degraded but well-formed page.
func MergeOutputs(contribs map[string]core.Contribution, existing map[string]any) map[string]any {
	merged := map[string]any{}
	if existing != nil {
		merged = deepCopy(existing)
	}
	def := ensureMap(merged, "componentDefinition")

	// 1. Layout structure is foundational.
	if layout := payloadOf(contribs, NameLayout); layout != nil {
		if lDef, ok := layout["componentDefinition"].(map[string]any); ok {
			for key, comp := range lDef {
				if cur, ok := def[key].(map[string]any); ok {
					deepMergeInto(cur, comp)
				} else {
					def[key] = deepCopyValue(comp)
				}
			}
		}
		if root, ok := layout["rootComponent"]; ok {
			merged["rootComponent"] = root
		}
	}

	// 2. Component choices and properties.
	if component := payloadOf(contribs, NameComponent); component != nil {
		if comps, ok := component["components"].(map[string]any); ok {
			for key, spec := range comps {
				target, ok := def[key].(map[string]any)
				if !ok {
					continue // never invent keys the layout did not define
				}
				deepMergeInto(target, spec)
			}
		}
	}

	// 3. Data bindings.
	if data := payloadOf(contribs, NameData); data != nil {
		if store, ok := data["storeInitialization"]; ok {
			props := ensureMap(merged, "properties")
			props["storeInitialization"] = deepCopyValue(store)
		}
		if bindings, ok := data["componentBindings"].(map[string]any); ok {
			applyPerComponent(def, bindings, "bindingPath")
		}
	}

	// 4. Event functions and hooks.
	if events := payloadOf(contribs, NameEvents); events != nil {
		if fns, ok := events["eventFunctions"].(map[string]any); ok {
			target := ensureMap(merged, "eventFunctions")
			for k, v := range fns {
				target[k] = deepCopyValue(v)
			}
		}
		if hooks, ok := events["componentEvents"].(map[string]any); ok {
			for key, hook := range hooks {
				comp, ok := def[key].(map[string]any)
				if !ok {
					continue
				}
				props := ensureMap(comp, "properties")
				if hm, ok := hook.(map[string]any); ok {
					deepMergeInto(props, hm)
				}
			}
		}
	}

	// 5. Styles.
	if styles := payloadOf(contribs, NameStyles); styles != nil {
		if cs, ok := styles["componentStyles"].(map[string]any); ok {
			applyStyles(def, cs)
		}
	}

	// 6. Animations layer on top of styles.
	if animation := payloadOf(contribs, NameAnimation); animation != nil {
		if ca, ok := animation["componentAnimations"].(map[string]any); ok {
			applyStyles(def, ca)
		}
		if kf, ok := animation["keyframeAnimations"].(map[string]any); ok {
			css, _ := merged["cssStyles"].(string)
			for _, frames := range kf {
				if s, ok := frames.(string); ok {
					css += "\n" + s
				}
			}
			merged["cssStyles"] = css
		}
	}

	normalizeComponents(def)
	return merged
}

// payloadOf returns a contribution's payload or nil when absent/invalid.
func payloadOf(contribs map[string]core.Contribution, name string) map[string]any {
	c, ok := contribs[name]
	if !ok || !c.Valid {
		return nil
	}
	return c.Payload
}

// applyStyles merges per-component style maps into styleProperties.
func applyStyles(def map[string]any, styles map[string]any) {
	for key, style := range styles {
		comp, ok := def[key].(map[string]any)
		if !ok {
			continue
		}
		sm, ok := style.(map[string]any)
		if !ok {
			continue
		}
		target := ensureMap(comp, "styleProperties")
		deepMergeInto(target, sm)
	}
}

// applyPerComponent attaches a value under field for every targeted key.
func applyPerComponent(def map[string]any, values map[string]any, field string) {
	for key, v := range values {
		comp, ok := def[key].(map[string]any)
		if !ok {
			continue
		}
		props := ensureMap(comp, "properties")
		props[field] = deepCopyValue(v)
	}
}

// normalizeComponents guarantees the invariants renderers rely on: each
// entry's key field matches its map key and a name exists.
func normalizeComponents(def map[string]any) {
	for key, raw := range def {
		comp, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if k, _ := comp["key"].(string); k != key {
			comp["key"] = key
		}
		if _, ok := comp["name"]; !ok {
			comp["name"] = key
		}
	}
}

// ensureMap returns the map at key, creating it when missing or mistyped.
func ensureMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	v := map[string]any{}
	m[key] = v
	return v
}

// deepMergeInto merges src into dst recursively; scalars from src win.
func deepMergeInto(dst, src any) {
	dm, ok1 := dst.(map[string]any)
	sm, ok2 := src.(map[string]any)
	if !ok1 || !ok2 {
		return
	}
	for k, sv := range sm {
		if dv, ok := dm[k].(map[string]any); ok {
			if svm, ok := sv.(map[string]any); ok {
				deepMergeInto(dv, svm)
				continue
			}
		}
		dm[k] = deepCopyValue(sv)
	}
}

// deepCopy clones a JSON-shaped map.
func deepCopy(m map[string]any) map[string]any {
	out, _ := deepCopyValue(m).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// deepCopyValue clones any JSON-shaped value via a marshal round trip.
func deepCopyValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
