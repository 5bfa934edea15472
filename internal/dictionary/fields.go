package dictionary

import (
	"github.com/scaleneo/bilan/internal/record"
	"github.com/scaleneo/bilan/internal/textscan"
)

func text(label, field string) Rule { return Rule{Label: label, Field: field} }
func num(label, field string) Rule  { return Rule{Label: label, Field: field, Kind: KindNumber} }
func flag(label, field string) Rule { return Rule{Label: label, Field: field, Kind: KindBool} }

func (r Rule) from(source string) Rule {
	r.Source = source
	return r
}

func (r Rule) ranged(label, rng string, decimal bool) Rule {
	r.Pattern = &textscan.LabelPattern{Label: label, Range: rng, Decimal: decimal}
	return r
}

// Tables returns the rule tables of the assessment form.
func Tables() map[record.SectionID][]Rule {
	return map[record.SectionID][]Rule{
		record.SectionAdmin: {
			text("nom et prénom", "nomPatient").from("nom_prenom"),
			num("année de naissance", "anneeNaissance"),
			num("age", "age"),
			text("sexe", "sexe"),
			text("profession", "profession"),
			text("secteur", "secteur"),
			text("kiné examinateur", "kineExaminateur").from("kine"),
			text("date bilan", "dateBilan"),
			text("id patient", "idPatient"),
			text("id bilan", "idBilan"),
		},
		record.SectionAnthropo: {
			num("poids", "poids").from("poids_kg"),
			num("taille", "taille").from("taille_cm"),
			num("imc", "imc"),
			text("catégorie imc", "imcCategorie"),
		},
		record.SectionPathologie: {
			text("antécédents lbp", "antecedentsLBP"),
			text("episode initial", "episodeInitial"),
			text("traumatisme", "modeApparition"),
			text("récidive", "recidive"),
			text("pire episode", "pireEpisode"),
			text("durée totale", "dureeTotale"),
			text("type lbp", "typeLBP"),
		},
		record.SectionSymptomes: {
			num("douleur au repos", "nrsRepos").ranged(`NRS Douleur au Repos`, "", false),
			num("douleur à l'activité", "nrsActivite").ranged(`NRS Douleur[^R]*l'Activité`, "", false),
			num("douleur maximum", "nrsMax").ranged(`NRS Douleur Maximum`, "", false),
			text("horaire douleur", "horaireDouleur"),
			text("variation journalière", "variationJournaliere"),
			text("facteurs aggravants", "facteursAggravants"),
			text("facteurs soulageants", "facteursSoulageants"),
			text("évolution", "evolution"),
		},
		record.SectionMecanismes: {
			text("douleur articulaire", "douleurArticulaire"),
			text("douleur myofasciale", "douleurMyofasciale"),
			text("douleur neurologique", "douleurNeurologique"),
			text("sensibilisation centrale", "sensibilisationCentrale"),
			text("déficit sensorimotor", "deficitSensorimoteur"),
			text("caractère sensations", "caractereSensations"),
			text("observations mécanismes", "observationsMecanismes"),
		},
		record.SectionTests: {
			text("flexion avant", "flexionAvant"),
			num("flexion avant nrs", "flexionAvantNrs"),
			text("extension", "extension"),
			num("extension nrs", "extensionNrs"),
			text("inclinaison d", "inclinaisonDroit"),
			num("inclinaison d nrs", "inclinaisonDroitNrs"),
			text("inclinaison g", "inclinaisonGauche"),
			num("inclinaison g nrs", "inclinaisonGaucheNrs"),
			text("rotation d", "rotationDroit"),
			num("rotation d nrs", "rotationDroitNrs"),
			text("rotation g", "rotationGauche"),
			num("rotation g nrs", "rotationGaucheNrs"),
			text("mobilité segmentaire pa", "mobiliteSegmentaire"),
			num("mobilité segmentaire pa nrs", "mobiliteSegmentaireNrs"),
			text("hanche", "hanche"),
			num("hanche nrs", "hancheNrs"),
			text("slr droit", "slrDroit"),
			text("slr gauche", "slrGauche"),
			text("asymétrie slr", "asymetrieSlr"),
			text("slump test", "slumpTest"),
			text("pkb", "pkb"),
			text("force musculaire", "forceMusculaire"),
			text("réflexes", "reflexes"),
			text("sensation", "sensation"),
			text("sensation localisation", "sensationLocalisation"),
			text("profil sensoriel", "profilSensoriel"),
			text("tension musculaire", "tensionMusculaire"),
			text("trigger points", "triggerPoints"),
			text("trigger points localisation", "triggerPointsLocalisation"),
			text("hypersensibilité", "hypersensibilite"),
			text("spasme musculaire", "spasmeMusculaire"),
			text("spasme musculaire localisation", "spasmeLocalisation"),
			text("localisation", "localisation"),
			text("signes méningés", "signesMeninges"),
			text("hypersensibilité à la pression", "hypersensibilitePression"),
			text("zone lombaire", "zoneLombaire"),
			text("zone contrôle", "zoneControle"),
			text("sorensen", "testSorensen").from("sorensen_sec"),
			text("ito shirado", "testItoShirado").from("ito_shirado_sec"),
			text("core strength index", "coreStrengthIndex"),
			text("side plank", "sidePlank").from("side_plank_sec"),
			text("csm", "controlSensoriMoteur").from("csm"),
		},
		record.SectionScores: {
			num("sbt", "scoreSBT").ranged(`SBT\s*\(`, "0-9", false),
			num("csi score", "scoreCSI").ranged(`CSI Score`, "0-100", false),
			num("odi score", "scoreODI").ranged(`ODI Score`, "0-100", false),
			num("pcs score", "scorePCS").ranged(`PCS Score`, "0-52", false),
			num("hads score anxiété", "scoreAnxiete").ranged(`HADS Score Anxiété`, "0-21", false).from("hads_anxiete"),
			num("hads score dépression", "scoreDepression").ranged(`HADS Score Dépression`, "0-21", false).from("hads_depression"),
			num("fabq score travail", "scoreFabqTravail").ranged(`FABQ Score Travail`, "0-100", false).from("fabq_travail"),
			num("fabq score activité", "scoreFabqActivite").ranged(`FABQ Score Activité`, "0-100", false).from("fabq_activite"),
			num("wai score", "scoreWAI").ranged(`WAI Score`, "0-100", true),
			text("ipaq", "scoreIPAQ"),
			num("ipaq met", "scoreIPAQ_MET"),
			text("psfs", "scorePSFS"),
			text("psfs scores", "scorePSFS_Scores"),
			text("sf-36", "qualiteVie").from("sf36"),
			text("autres questionnaires", "autresQuestionnaires"),
		},
		record.SectionRedFlags: {
			text("drapeaux rouges", "redFlags"),
			text("si oui, lesquels", "detailsRedFlags"),
			text("contre-indications", "contreIndications"),
			text("allergies", "allergies"),
			text("médications", "medications"),
			text("examen médicaux", "examensMedicaux"),
			text("instabilité rachidienne", "instabiliteRachidienne"),
			text("signes", "signesInstabilite"),
			text("limitation traitement", "limitationManuelle"),
			text("anticoagulation", "anticoagulation"),
			text("traitement", "traitementAnticoagulation"),
			text("grossesse", "grossesse"),
			text("trimestre", "trimestreGrossesse"),
			text("adaptations", "adaptationsGrossesse"),
			text("état général", "etatGeneral"),
		},
		record.SectionMecanismesResume: {
			flag("motif articulaire", "motifArticulaire"),
			flag("motif myofascial", "motifMyofascial"),
			flag("motif neural", "motifNeural"),
			flag("sensibilisation centrale", "motifSensibilisationCentrale"),
			flag("contrôle sensorimoteur", "controleSensorimoteur"),
		},
		record.SectionGestion: {
			text("fréquence thérapie", "frequence"),
			flag("thérapie manuelle", "hasTherapieManuelle"),
			text("types tm", "typesTherapieManuelle"),
			flag("thérapie par exercice", "hasExercices"),
			text("types exercices", "typesExercices"),
			flag("thérapie par neurodynamique", "hasNeurodynamique"),
			text("types neuro", "typesNeurodynamique"),
			flag("éducation patient", "hasEducation"),
			text("sujets éducation", "sujetsEducation"),
			text("modalités supplémentaires", "modalitesSup"),
		},
		record.SectionPerspectives: {
			text("compréhension du diagnostic", "comprehensionDiagnostic"),
			text("inquiétudes", "inquietudes"),
			text("perception de gravité", "perceptionGravite"),
			text("auto-efficacité", "autoEfficacite"),
			text("croyance contrôle", "croyanceControle"),
		},
		record.SectionPronostic: {
			text("durée estimée traitement", "dureeTraitement").from("duree_traitement_semaines"),
			num("nombre de séances", "nbSeances"),
			text("facteurs pronostiques positifs", "facteursPositifs"),
			text("facteurs pronostiques négatifs", "facteursNegatifs"),
			text("objectifs à court terme", "objectifsCourtTerme"),
			text("objectifs à long terme", "objectifsLongTerme"),
			flag("attentes réalistes", "attentesRealistes"),
			text("attentes réalistes détails", "detailAttentes"),
			text("patient anticipe guérison", "anticipationGuerison"),
			text("yellow flags", "yellowFlags"),
			text("yellow flags détails", "detailYellowFlags"),
			text("soutien social", "soutienSocial"),
			text("soutien social détails", "detailSoutien"),
			text("stresseurs", "stresseurs"),
			text("point de réévaluation", "pointReevaluation"),
			text("critères changement", "criteresChangement"),
			flag("besoin orientation", "orientationSpecialise"),
			text("barrières anticipées", "barrieresTraitement"),
		},
		record.SectionActivites: {
			text("activités quotidiennes", "activitesQuotidiennes"),
			text("loisirs/sports", "loisirs"),
			text("activités antérieures", "activitesAnterieures"),
			text("actuellement", "activitesActuelles"),
			text("temps assis", "tempsAssis").from("temps_assis_h"),
			text("temps assis debout", "tempsDebout").from("temps_debout_h"),
			text("temps assis marche", "tempsMarche").from("temps_marche_h"),
			text("temps assis quotidien", "tempsAssisQuotidien").from("temps_assis_quotidien_h"),
			text("écran", "tempsEcran").from("temps_ecran_h"),
			text("comportement sédentaire", "sedentarite"),
			text("statut professionnel", "statutPro"),
			num("jours d'absence", "joursAbsence"),
			text("limitations professionnelles", "limitationsPro"),
			text("tâches impossibles", "tachesImpossibles"),
			text("tâches difficiles", "tachesDifficiles"),
			text("attentes retour", "attentesRetourTravail"),
			text("délai anticipé", "delaiRetourTravail"),
			text("confiance", "confianceRetourTravail"),
			flag("modifications poste", "modifPoste"),
			text("type", "typeModifPoste"),
		},
		record.SectionFacteurs: {
			text("défauts posturaux", "defautsPosturaux"),
			text("facteurs biomécaniques", "facteursBiomeca"),
			text("facteurs de style de vie", "facteursLifestyle"),
			text("facteurs hormonaux", "facteursHormonaux"),
			flag("contexte de travail", "ergonomieTravail"),
			text("poste optimisé", "posteOptimise"),
			text("recommandations", "recommandationsErgonomie"),
			text("facteurs psychosociaux", "facteursPsycho"),
			text("système santé", "systemeSante"),
			text("conception biopsychosociale", "conceptionBiopsychosociale"),
			flag("attentes culturelles", "attentesCulturelles"),
			text("attente guérison rapide", "attenteGuerisonRapide"),
			text("approche préférée", "approchePreferee"),
			text("compliance anticipée", "compliance"),
			text("barrières", "barrieresCompliance"),
		},
		record.SectionSatisfaction: {
			text("pgic", "pgic"),
			text("état", "etatPGIC"),
			text("treatment satisfaction", "satisfaction"),
			text("relation thérapeute", "relationTherapeute"),
			text("gas", "gasScore"),
			text("progression objectives", "progressionGAS"),
		},
		record.SectionObservations: {
			text("résumé clinique", "resumeClinique"),
			text("observations globales", "observationsGlobales"),
			text("impression générale", "impressionGenerale"),
			text("notes supplémentaires", "notesSup"),
			text("plan de traitement", "planTraitement"),
		},
		record.SectionHypothese: {
			text("pathology", "pathology"),
			text("sources of symptoms", "sourcesOfSymptoms"),
			text("pain type", "painType"),
			text("impairments", "impairments"),
			text("pain mechanisms", "painMechanisms"),
			text("precautions", "precautions"),
			text("patients' perspectives", "patientPerspectives"),
			text("activity & participation", "activityParticipation"),
			text("contributing factors", "contributingFactors"),
			text("management & prognosis", "managementPrognosis"),
		},
		record.SectionQualite: {
			text("confiance extraction", "confianceExtraction"),
			flag("données complètes", "isComplete"),
			flag("révision manuelle", "needsReview"),
			text("modifié par", "modifiePar"),
			text("date modification", "dateModification"),
		},
	}
}

var defaultDictionary = mustNew(Tables())

func mustNew(tables map[record.SectionID][]Rule) *Dictionary {
	d, err := New(tables)
	if err != nil {
		panic(err)
	}
	return d
}

// Default returns the dictionary of the assessment form.
func Default() *Dictionary { return defaultDictionary }
