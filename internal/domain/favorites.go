package domain

// FavoriteSet holds the user's favorite cities and coin ids (insertion ordered, no duplicates).
type FavoriteSet struct {
	Cities  []string `json:"favoriteCities"`
	Cryptos []string `json:"favoriteCryptos"`
}

// DefaultFavorites returns the built-in defaults.
func DefaultFavorites() FavoriteSet {
	return FavoriteSet{
		Cities:  []string{},
		Cryptos: []string{"bitcoin", "ethereum", "ripple"},
	}
}

// PersistedPreferences is the durable form. A nil field means the key was absent.
type PersistedPreferences struct {
	Cities  *[]string `json:"favoriteCities,omitempty"`
	Cryptos *[]string `json:"favoriteCryptos,omitempty"`
}

// Persisted converts the set to its durable form with both keys present.
func (f FavoriteSet) Persisted() PersistedPreferences {
	cities := normalize(f.Cities)
	cryptos := normalize(f.Cryptos)
	return PersistedPreferences{Cities: &cities, Cryptos: &cryptos}
}

// MergeOver applies persisted keys over base; absent keys keep base values.
func (p PersistedPreferences) MergeOver(base FavoriteSet) FavoriteSet {
	out := FavoriteSet{Cities: normalize(base.Cities), Cryptos: normalize(base.Cryptos)}
	if p.Cities != nil {
		out.Cities = normalize(*p.Cities)
	}
	if p.Cryptos != nil {
		out.Cryptos = normalize(*p.Cryptos)
	}
	return out
}

func (f FavoriteSet) AddCity(city string) FavoriteSet {
	f.Cities = add(f.Cities, city)
	return f
}

func (f FavoriteSet) RemoveCity(city string) FavoriteSet {
	f.Cities = remove(f.Cities, city)
	return f
}

func (f FavoriteSet) AddCrypto(id string) FavoriteSet {
	f.Cryptos = add(f.Cryptos, id)
	return f
}

func (f FavoriteSet) RemoveCrypto(id string) FavoriteSet {
	f.Cryptos = remove(f.Cryptos, id)
	return f
}

// HasCrypto reports whether id is a favorite.
func (f FavoriteSet) HasCrypto(id string) bool {
	return contains(f.Cryptos, id)
}

// HasCity reports whether city is a favorite.
func (f FavoriteSet) HasCity(city string) bool {
	return contains(f.Cities, city)
}

// Equal compares both sets including order.
func (f FavoriteSet) Equal(o FavoriteSet) bool {
	return equalSlices(f.Cities, o.Cities) && equalSlices(f.Cryptos, o.Cryptos)
}

func add(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v)
}

func remove(list []string, v string) []string {
	if !contains(list, v) {
		return list
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// normalize copies list, dropping duplicates and never returning nil.
func normalize(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
