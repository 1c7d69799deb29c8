package registry

import "github.com/nerrad567/rotex-can-core/internal/entity"

// Float returns the numeric value of a sensor or number entity. A missing
// entity, a different kind or an absent value report false; the first two
// are logged.
func (r *Registry) Float(id string) (float64, bool) {
	e, ok := r.lookup(id, entity.KindSensor, entity.KindNumber)
	if !ok {
		return 0, false
	}
	return e.Value().Float()
}

// Text returns the string value of a text sensor or select entity.
func (r *Registry) Text(id string) (string, bool) {
	e, ok := r.lookup(id, entity.KindTextSensor, entity.KindSelect)
	if !ok {
		return "", false
	}
	return e.Value().Text()
}

// Bool returns the value of a binary sensor.
func (r *Registry) Bool(id string) (bool, bool) {
	e, ok := r.lookup(id, entity.KindBinarySensor)
	if !ok {
		return false, false
	}
	return e.Value().Bool()
}

// Has reports whether an entity with the given id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) lookup(id string, kinds ...entity.Kind) (*entity.Entity, bool) {
	e, ok := r.byID[id]
	if !ok {
		r.logger.Debug("entity not registered", "entity", id)
		return nil, false
	}
	for _, k := range kinds {
		if e.Kind() == k {
			return e, true
		}
	}
	r.logger.Warn("entity kind mismatch", "entity", id, "kind", e.Kind(), "want", kinds)
	return nil, false
}
