// Package locations lists the Egyptian governorates served by the store and
// the cities offered for each.
package locations

// Governorate is a delivery region with its selectable cities.
type Governorate struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

var governorates = []Governorate{
	{"القاهرة", []string{"Nasr City", "Maadi", "Heliopolis", "New Cairo", "Zamalek", "Dokki", "Mohandessin", "Giza", "October City"}},
	{"الإسكندرية", []string{"Montaza", "Sidi Gaber", "Smouha", "Miami", "Stanley", "Gleem", "Roushdy"}},
	{"الجيزة", []string{"Haram", "Faisal", "Agouza", "Imbaba", "Boulaq", "Omraneya"}},
	{"القليوبية", []string{"Banha", "Shubra El-Kheima", "Qalyub", "Khanka", "Obour City"}},
	{"الشرقية", []string{"Zagazig", "10th of Ramadan", "Bilbeis", "Abu Kabir"}},
	{"الدقهلية", []string{"Mansoura", "Mit Ghamr", "Talkha", "Aga"}},
	{"الغربية", []string{"Tanta", "El-Mahalla El-Kubra", "Kafr El-Zayat", "Samannoud"}},
	{"المنوفية", []string{"Shebin El-Kom", "Menouf", "Ashmoun", "Quesna"}},
	{"البحيرة", []string{"Damanhour", "Kafr El-Dawwar", "Rashid", "Edku"}},
	{"كفر الشيخ", []string{"Kafr El-Sheikh", "Desouk", "Baltim", "Fuwwah"}},
	{"دمياط", []string{"Damietta", "New Damietta", "Ras El-Bar", "Faraskour"}},
	{"بورسعيد", []string{"Port Said City", "Port Fouad", "El-Arab District"}},
	{"الإسماعيلية", []string{"Ismailia City", "El-Qantara", "Fayed", "Abu Sultan"}},
	{"السويس", []string{"Suez City", "El-Arbaeen", "Attaka", "Faisal"}},
	{"شمال سيناء", []string{"Arish", "Sheikh Zuweid", "Rafah", "Bir al-Abd"}},
	{"جنوب سيناء", []string{"Sharm El-Sheikh", "Dahab", "Nuweiba", "Taba", "Saint Catherine"}},
	{"الفيوم", []string{"Fayoum City", "Ibsheway", "Sinnuris", "Tamiya"}},
	{"بني سويف", []string{"Beni Suef City", "El-Wasta", "Nasser", "Beba"}},
	{"المنيا", []string{"Minya City", "Mallawi", "Samalut", "Beni Mazar"}},
	{"أسيوط", []string{"Asyut City", "Abnub", "El-Qusiya", "Manfalut"}},
	{"سوهاج", []string{"Sohag City", "Akhmim", "Girga", "Tahta"}},
	{"قنا", []string{"Qena City", "Nag Hammadi", "Qift", "Qus"}},
	{"الأقصر", []string{"Luxor City", "Esna", "Armant", "El-Tod"}},
	{"أسوان", []string{"Aswan City", "Kom Ombo", "Edfu", "Abu Simbel"}},
	{"البحر الأحمر", []string{"Hurghada", "Safaga", "El-Quseir", "Marsa Alam"}},
	{"الوادي الجديد", []string{"Kharga", "Dakhla", "Farafra", "Paris"}},
	{"مطروح", []string{"Marsa Matrouh", "El-Alamein", "Sidi Barrani", "Siwa"}},
}

var byName = func() map[string][]string {
	m := make(map[string][]string, len(governorates))
	for _, g := range governorates {
		m[g.Name] = g.Cities
	}
	return m
}()

// Names returns the governorate names in display order.
func Names() []string {
	out := make([]string, len(governorates))
	for i, g := range governorates {
		out[i] = g.Name
	}
	return out
}

// Cities returns the cities of a governorate, or nil when it is unknown.
func Cities(governorate string) []string {
	cities, ok := byName[governorate]
	if !ok {
		return nil
	}
	out := make([]string, len(cities))
	copy(out, cities)
	return out
}

// Known reports whether name is a served governorate.
func Known(name string) bool {
	_, ok := byName[name]
	return ok
}
