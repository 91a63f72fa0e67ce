// Package geo extracts Bangladeshi place names from article text and
// resolves them to coordinates through a rate-limited, cached
// Nominatim-compatible geocoder.
package geo

// placePatterns is the ordered place-name table: one entry per place,
// each listing its surface forms in Bengali and Latin script. Earlier
// entries win when resolving, so divisional cities lead and the finer
// localities follow.
var placePatterns = [][]string{
	// Divisional cities and districts.
	{"ঢাকা", "dhaka", "dhaka city"},
	{"চট্টগ্রাম", "chittagong", "chattogram"},
	{"সিলেট", "sylhet"},
	{"রাজশাহী", "rajshahi"},
	{"খুলনা", "khulna"},
	{"বরিশাল", "barisal", "barishal"},
	{"রংপুর", "rangpur"},
	{"ময়মনসিংহ", "mymensingh"},
	{"কুমিল্লা", "comilla", "cumilla"},
	{"নারায়ণগঞ্জ", "narayanganj"},
	{"গাজীপুর", "gazipur"},
	{"টাঙ্গাইল", "tangail"},
	{"জামালপুর", "jamalpur"},
	{"নেত্রকোনা", "netrokona"},
	{"শেরপুর", "sherpur"},
	{"কিশোরগঞ্জ", "kishoreganj"},
	{"মানিকগঞ্জ", "manikganj"},
	{"মুন্শিগঞ্জ", "munshiganj"},
	{"নরসিংদী", "narsingdi"},
	{"ফরিদপুর", "faridpur"},
	{"গোপালগঞ্জ", "gopalganj"},
	{"মাদারীপুর", "madaripur"},
	{"রাজবাড়ী", "rajbari"},
	{"শরীয়তপুর", "shariatpur"},
	{"নোয়াখালী", "noakhali"},
	{"ফেনী", "feni"},
	{"লক্ষ্মীপুর", "lakshmipur"},
	{"চাঁদপুর", "chandpur"},
	{"ব্রাহ্মণবাড়িয়া", "brahmanbaria"},
	{"হবিগঞ্জ", "habiganj"},
	{"মৌলভীবাজার", "moulvibazar"},
	{"সুনামগঞ্জ", "sunamganj"},
	{"নাটোর", "natore"},
	{"নওগাঁ", "naogaon"},
	{"চাঁপাইনবাবগঞ্জ", "chapainawabganj"},
	{"পাবনা", "pabna"},
	{"সিরাজগঞ্জ", "sirajganj"},
	{"বগুড়া", "bogura", "bogra"},
	{"জয়পুরহাট", "joypurhat"},
	{"কুষ্টিয়া", "kushtia"},
	{"মেহেরপুর", "meherpur"},
	{"চুয়াডাঙ্গা", "chuadanga"},
	{"ঝিনাইদহ", "jhenaidah"},
	{"মাগুরা", "magura"},
	{"নড়াইল", "narail"},
	{"সাতক্ষীরা", "satkhira"},
	{"বাগেরহাট", "bagerhat"},
	{"ঝালকাঠি", "jhalokati"},
	{"পটুয়াখালী", "patuakhali"},
	{"পিরোজপুর", "pirojpur"},
	{"ভোলা", "bhola"},
	{"বরগুনা", "barguna"},
	{"দিনাজপুর", "dinajpur"},
	{"ঠাকুরগাঁও", "thakurgaon"},
	{"পঞ্চগড়", "panchagarh"},
	{"নীলফামারী", "nilphamari"},
	{"লালমনিরহাট", "lalmonirhat"},
	{"কুড়িগ্রাম", "kurigram"},
	{"গাইবান্ধা", "gaibandha"},
	{"কক্সবাজার", "cox's bazar", "coxsbazar"},
	{"রাঙ্গামাটি", "rangamati"},
	{"বান্দরবান", "bandarban"},
	{"খাগড়াছড়ি", "khagrachhari"},

	// Dhaka-area localities and upazilas.
	{"উত্তরা", "uttara"},
	{"গুলশান", "gulshan"},
	{"ধানমন্ডি", "dhanmondi"},
	{"বনানী", "banani"},
	{"মিরপুর", "mirpur"},
	{"মোহাম্মদপুর", "mohammadpur"},
	{"রমনা", "ramna"},
	{"তেজগাঁও", "tejgaon"},
	{"পল্টন", "paltan"},
	{"মতিঝিল", "motijheel"},
	{"ওয়ারী", "wari"},
	{"পুরান ঢাকা", "old dhaka"},
	{"নিউ মার্কেট", "new market"},
	{"শাহবাগ", "shahbag"},
	{"কারওয়ান বাজার", "karwan bazar"},
	{"ফার্মগেট", "farmgate"},
	{"কল্যাণপুর", "kalyanpur"},
	{"শ্যামলী", "shyamoli"},
	{"আগারগাঁও", "agargaon"},
	{"বাড্ডা", "badda"},
	{"রামপুরা", "rampura"},
	{"খিলগাঁও", "khilgaon"},
	{"মালিবাগ", "malibagh"},
	{"মগবাজার", "mogbazar"},
	{"সিদ্ধেশ্বরী", "siddheshwari"},
	{"সেগুনবাগিচা", "segunbagicha"},
	{"হাতিরঝিল", "hatirjheel"},
	{"বসুন্ধরা", "bashundhara"},
	{"বারিধারা", "baridhara"},
	{"নিকেতন", "niketon"},
	{"বনশ্রী", "banasree"},
	{"মেরুল", "merul"},
	{"যাত্রাবাড়ী", "jatrabari"},
	{"কদমতলী", "kadamtali"},
	{"গেন্ডারিয়া", "gendaria"},
	{"নাজিরাবাজার", "nazirabazar"},
	{"শান্তিনগর", "shantinagar"},
	{"কমলাপুর", "kamalapur"},
	{"সবুজবাগ", "sabujbagh"},
	{"ডেমরা", "demra"},
	{"কেরানীগঞ্জ", "keraniganj"},
	{"সাভার", "savar"},
	{"আশুলিয়া", "ashulia"},
	{"টঙ্গী", "tongi"},
	{"কালিয়াকৈর", "kaliakair"},
	{"কাপাসিয়া", "kapasia"},
	{"শ্রীপুর", "sreepur"},
	{"ভালুকা", "bhaluka"},
	{"ত্রিশাল", "trishal"},
	{"ফুলবাড়িয়া", "fulbaria"},
	{"গফরগাঁও", "gafargaon"},
	{"ঈশ্বরগঞ্জ", "ishwarganj"},
	{"নান্দাইল", "nandail"},
	{"তারাকান্দা", "tarakanda"},
	{"হালুয়াঘাট", "haluaghat"},
	{"দেওয়ানগঞ্জ", "dewanganj"},
	{"বকশীগঞ্জ", "bakshiganj"},
	{"ইসলামপুর", "islampur"},
	{"মাদারগঞ্জ", "madarganj"},
	{"মেলান্দহ", "melandaha"},
	{"সরিষাবাড়ী", "sarishabari"},
	{"নকলা", "nakla"},
	{"ঝিনাইগাতী", "jhinaigati"},
	{"শ্রীবর্দী", "sreebordi"},
	{"নালিতাবাড়ী", "nalitabari"},
	{"মুক্তাগাছা", "muktagachha"},
	{"ফুলপুর", "fulpur"},
	{"ধোবাউড়া", "dhobaura"},
	{"কলমাকান্দা", "kolmakanda"},
	{"পূর্বধলা", "purbadhala"},
	{"খালিয়াজুরী", "khaliajuri"},
	{"মদন", "madan"},
	{"কেন্দুয়া", "kendua"},
	{"আটপাড়া", "atpara"},
	{"বারহাট্টা", "barhatta"},
	{"দুর্গাপুর", "durgapur"},
	{"কালমাকান্দা", "kalmakanda"},
}

// compiledPatterns holds the table pre-split into rune slices so the
// scanner never re-decodes names per call.
var compiledPatterns = compilePatterns()

func compilePatterns() [][][]rune {
	out := make([][][]rune, len(placePatterns))
	for i, alternatives := range placePatterns {
		names := make([][]rune, len(alternatives))
		for j, name := range alternatives {
			names[j] = []rune(name)
		}
		out[i] = names
	}
	return out
}
